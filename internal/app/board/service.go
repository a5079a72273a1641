package board

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nuid"

	"github.com/boardstream/project/internal/app/authz"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidRole   = errors.New("invalid role")
	ErrAlreadyMember = errors.New("user is already a member")
)

type Service struct {
	Repo  Repository
	NewID func() string
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo, NewID: nuid.Next}
}

// Create makes a new board owned by the actor. Only global admins and owners
// may create top-level boards; the creator is also added to the member list
// with the plain member role, matching the reference policy.
func (s *Service) Create(ctx context.Context, actor authz.User, title, description string) (Board, error) {
	if actor.GlobalRole != authz.RoleAdmin && actor.GlobalRole != authz.RoleOwner {
		return Board{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Board{}, ErrTitleRequired
	}

	b := Board{
		ID:          s.NewID(),
		Title:       title,
		Description: strings.TrimSpace(description),
		OwnerID:     actor.ID,
		Members:     []Member{{UserID: actor.ID, Role: authz.RoleMember}},
	}
	if err := s.Repo.CreateBoard(ctx, b); err != nil {
		return Board{}, err
	}
	return s.Repo.GetBoard(ctx, b.ID)
}

// ListVisible applies the board visibility filter for the actor. The owner's
// global role rides along on each board row, resolved fresh by the repository.
func (s *Service) ListVisible(ctx context.Context, actor authz.User) ([]Board, error) {
	all, err := s.Repo.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]Board, 0, len(all))
	for _, b := range all {
		if authz.BoardVisible(actor, b.AuthzView(), b.OwnerGlobalRole) {
			visible = append(visible, b)
		}
	}
	return visible, nil
}

func (s *Service) Get(ctx context.Context, actor authz.User, boardID string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return Board{}, ErrForbidden
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, actor authz.User, boardID, title, description string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionEditBoard) {
		return Board{}, ErrForbidden
	}
	if strings.TrimSpace(title) == "" {
		title = b.Title
	}
	if strings.TrimSpace(description) == "" {
		description = b.Description
	}
	if err := s.Repo.UpdateBoard(ctx, boardID, strings.TrimSpace(title), strings.TrimSpace(description)); err != nil {
		return Board{}, err
	}
	return s.Repo.GetBoard(ctx, boardID)
}

// Delete applies the owner-identity-aware delete policy. The board creator's
// global role comes from the board row's fresh user-store join, never from
// token claims.
func (s *Service) Delete(ctx context.Context, actor authz.User, boardID string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanDeleteBoard(actor.ID, actor.GlobalRole, b.OwnerID, b.OwnerGlobalRole) {
		return Board{}, ErrForbidden
	}
	if err := s.Repo.DeleteBoard(ctx, boardID); err != nil {
		return Board{}, err
	}
	return b, nil
}

func (s *Service) AddMember(ctx context.Context, actor authz.User, boardID, userID string, roleRaw string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionManageMembers) {
		return Board{}, ErrForbidden
	}
	for _, m := range b.Members {
		if m.UserID == userID {
			return Board{}, ErrAlreadyMember
		}
	}
	role := authz.RoleMember
	if strings.TrimSpace(roleRaw) != "" {
		parsed, ok := authz.ParseRole(roleRaw)
		if !ok || parsed == authz.RoleOwner {
			return Board{}, ErrInvalidRole
		}
		role = parsed
	}
	if err := s.Repo.AddMember(ctx, boardID, userID, role); err != nil {
		return Board{}, err
	}
	return s.Repo.GetBoard(ctx, boardID)
}

func (s *Service) UpdateMemberRole(ctx context.Context, actor authz.User, boardID, userID, roleRaw string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionManageMembers) {
		return Board{}, ErrForbidden
	}
	role, ok := authz.ParseRole(roleRaw)
	if !ok || role == authz.RoleOwner {
		return Board{}, ErrInvalidRole
	}
	if err := s.Repo.UpdateMemberRole(ctx, boardID, userID, role); err != nil {
		return Board{}, err
	}
	return s.Repo.GetBoard(ctx, boardID)
}

func (s *Service) RemoveMember(ctx context.Context, actor authz.User, boardID, userID string) (Board, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionManageMembers) {
		return Board{}, ErrForbidden
	}
	if err := s.Repo.RemoveMember(ctx, boardID, userID); err != nil {
		return Board{}, err
	}
	return s.Repo.GetBoard(ctx, boardID)
}

func (s *Service) CreateList(ctx context.Context, actor authz.User, boardID, title string) (List, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return List{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionCreateList) {
		return List{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return List{}, ErrTitleRequired
	}
	pos, err := s.Repo.NextListPosition(ctx, boardID)
	if err != nil {
		return List{}, err
	}
	l := List{ID: s.NewID(), BoardID: boardID, Title: title, Position: pos, TaskIDs: []string{}}
	if err := s.Repo.CreateList(ctx, l); err != nil {
		return List{}, err
	}
	return s.Repo.GetList(ctx, l.ID)
}

func (s *Service) Lists(ctx context.Context, actor authz.User, boardID string) ([]List, error) {
	b, err := s.Repo.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return nil, ErrForbidden
	}
	return s.Repo.ListsByBoard(ctx, boardID)
}

func (s *Service) RenameList(ctx context.Context, actor authz.User, listID, title string) (List, error) {
	l, err := s.Repo.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	b, err := s.Repo.GetBoard(ctx, l.BoardID)
	if err != nil {
		return List{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionCreateList) {
		return List{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return List{}, ErrTitleRequired
	}
	if err := s.Repo.UpdateListTitle(ctx, listID, title); err != nil {
		return List{}, err
	}
	return s.Repo.GetList(ctx, listID)
}

// DeleteList removes a list and its tasks. Returns the deleted list so the
// caller can describe it in the activity feed.
func (s *Service) DeleteList(ctx context.Context, actor authz.User, listID string) (List, error) {
	l, err := s.Repo.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	b, err := s.Repo.GetBoard(ctx, l.BoardID)
	if err != nil {
		return List{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionDeleteList) {
		return List{}, ErrForbidden
	}
	if err := s.Repo.DeleteList(ctx, listID); err != nil {
		return List{}, err
	}
	return l, nil
}
