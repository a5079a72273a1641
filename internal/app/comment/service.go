package comment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nats-io/nuid"

	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/app/board"
	"github.com/boardstream/project/internal/app/identity"
	"github.com/boardstream/project/internal/app/task"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrBodyRequired = errors.New("comment body is required")
	ErrBadParent    = errors.New("parent comment belongs to a different task")
)

// mentionPattern picks out @name tokens from a comment body.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Mentions returns the unique mention tokens in order of first appearance.
func Mentions(body string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, 2)
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m[1])
	}
	return out
}

type BoardStore interface {
	GetBoard(ctx context.Context, boardID string) (board.Board, error)
}

type TaskStore interface {
	GetTask(ctx context.Context, taskID string) (task.Task, error)
}

// MentionResolver maps a mention token to a user by exact display name.
type MentionResolver interface {
	ResolveMention(ctx context.Context, name string) (identity.User, error)
}

type Service struct {
	Repo     Repository
	Boards   BoardStore
	Tasks    TaskStore
	Resolver MentionResolver
	NewID    func() string
}

func NewService(repo Repository, boards BoardStore, tasks TaskStore, resolver MentionResolver) *Service {
	return &Service{Repo: repo, Boards: boards, Tasks: tasks, Resolver: resolver, NewID: nuid.Next}
}

// CreateResult pairs the stored comment with the mention notifications it
// produced, so the caller can fan out notification events per recipient.
type CreateResult struct {
	Comment       Comment
	Notifications []Notification
}

func (s *Service) Create(ctx context.Context, actor authz.User, taskID, body, parentID string) (CreateResult, error) {
	t, err := s.Tasks.GetTask(ctx, taskID)
	if errors.Is(err, task.ErrNotFound) {
		return CreateResult{}, ErrNotFound
	}
	if err != nil {
		return CreateResult{}, err
	}
	b, err := s.Boards.GetBoard(ctx, t.BoardID)
	if err != nil {
		return CreateResult{}, err
	}
	if authz.EffectiveRole(actor, b.AuthzView()) == authz.RoleViewer {
		return CreateResult{}, ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return CreateResult{}, ErrBodyRequired
	}
	if parentID != "" {
		parent, err := s.Repo.GetComment(ctx, parentID)
		if err != nil {
			return CreateResult{}, err
		}
		if parent.TaskID != taskID {
			return CreateResult{}, ErrBadParent
		}
	}

	c := Comment{
		ID:       s.NewID(),
		TaskID:   taskID,
		BoardID:  t.BoardID,
		AuthorID: actor.ID,
		ParentID: parentID,
		Body:     body,
	}
	if err := s.Repo.InsertComment(ctx, c); err != nil {
		return CreateResult{}, err
	}
	stored, err := s.Repo.GetComment(ctx, c.ID)
	if err != nil {
		stored = c
	}

	return CreateResult{
		Comment:       stored,
		Notifications: s.notifyMentions(ctx, actor, stored, t.Title),
	}, nil
}

// notifyMentions resolves each @name token and stores a notification per
// mentioned user. Unresolvable tokens and self-mentions are skipped; a
// failed notification write never fails the comment.
func (s *Service) notifyMentions(ctx context.Context, actor authz.User, c Comment, taskTitle string) []Notification {
	var created []Notification
	for _, name := range Mentions(c.Body) {
		u, err := s.Resolver.ResolveMention(ctx, name)
		if err != nil || u.ID == actor.ID {
			continue
		}
		msg := fmt.Sprintf("You were mentioned on %q", taskTitle)
		if c.AuthorName != "" {
			msg = fmt.Sprintf("%s mentioned you on %q", c.AuthorName, taskTitle)
		}
		n := Notification{
			ID:        s.NewID(),
			UserID:    u.ID,
			ActorID:   actor.ID,
			BoardID:   c.BoardID,
			TaskID:    c.TaskID,
			CommentID: c.ID,
			Message:   msg,
		}
		if err := s.Repo.InsertNotification(ctx, n); err != nil {
			continue
		}
		created = append(created, n)
	}
	return created
}

func (s *Service) ByTask(ctx context.Context, actor authz.User, taskID string) ([]Comment, error) {
	t, err := s.Tasks.GetTask(ctx, taskID)
	if errors.Is(err, task.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b, err := s.Boards.GetBoard(ctx, t.BoardID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return nil, ErrForbidden
	}
	return s.Repo.CommentsByTask(ctx, taskID)
}

// Delete removes a comment and its replies. Allowed for the author and for
// board owners and admins.
func (s *Service) Delete(ctx context.Context, actor authz.User, commentID string) (Comment, error) {
	c, err := s.Repo.GetComment(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	if c.AuthorID != actor.ID {
		b, err := s.Boards.GetBoard(ctx, c.BoardID)
		if err != nil {
			return Comment{}, err
		}
		role := authz.EffectiveRole(actor, b.AuthzView())
		if role != authz.RoleOwner && role != authz.RoleAdmin {
			return Comment{}, ErrForbidden
		}
	}
	if err := s.Repo.DeleteComment(ctx, commentID); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *Service) Notifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return s.Repo.NotificationsForUser(ctx, userID, limit)
}

func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	return s.Repo.MarkNotificationRead(ctx, notificationID, userID)
}
