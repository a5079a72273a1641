package task

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nuid"

	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/app/board"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrTitleRequired = errors.New("title is required")
	ErrListMismatch  = errors.New("target list belongs to a different board")
)

// BoardStore is the slice of the board repository the task service needs
// for permission checks and list lookups.
type BoardStore interface {
	GetBoard(ctx context.Context, boardID string) (board.Board, error)
	GetList(ctx context.Context, listID string) (board.List, error)
}

type Service struct {
	Repo   Repository
	Boards BoardStore
	NewID  func() string
}

func NewService(repo Repository, boards BoardStore) *Service {
	return &Service{Repo: repo, Boards: boards, NewID: nuid.Next}
}

func (s *Service) boardFor(ctx context.Context, boardID string) (board.Board, error) {
	b, err := s.Boards.GetBoard(ctx, boardID)
	if errors.Is(err, board.ErrNotFound) {
		return board.Board{}, ErrNotFound
	}
	return b, err
}

func (s *Service) Create(ctx context.Context, actor authz.User, listID string, p UpdateParams) (Task, error) {
	l, err := s.Boards.GetList(ctx, listID)
	if errors.Is(err, board.ErrNotFound) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	b, err := s.boardFor(ctx, l.BoardID)
	if err != nil {
		return Task{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionCreateTask) {
		return Task{}, ErrForbidden
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Task{}, ErrTitleRequired
	}

	return s.Repo.CreateTask(ctx, Task{
		ID:          s.NewID(),
		BoardID:     l.BoardID,
		ListID:      listID,
		Title:       title,
		Description: strings.TrimSpace(p.Description),
		AssigneeID:  p.AssigneeID,
		Priority:    p.Priority,
		DueDate:     p.DueDate,
		CreatedBy:   actor.ID,
	})
}

func (s *Service) Get(ctx context.Context, actor authz.User, taskID string) (Task, error) {
	t, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	b, err := s.boardFor(ctx, t.BoardID)
	if err != nil {
		return Task{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return Task{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) ByBoard(ctx context.Context, actor authz.User, boardID string) ([]Task, error) {
	b, err := s.boardFor(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return nil, ErrForbidden
	}
	return s.Repo.TasksByBoard(ctx, boardID)
}

func (s *Service) Update(ctx context.Context, actor authz.User, taskID string, p UpdateParams) (Task, error) {
	t, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	b, err := s.boardFor(ctx, t.BoardID)
	if err != nil {
		return Task{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionEditTask) {
		return Task{}, ErrForbidden
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = t.Title
	}
	p.Description = strings.TrimSpace(p.Description)
	return s.Repo.UpdateTask(ctx, taskID, p)
}

// Move relocates a task within its board. An empty toListID means reorder
// within the current list.
func (s *Service) Move(ctx context.Context, actor authz.User, taskID, toListID string, toIndex int) (MoveResult, error) {
	t, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		return MoveResult{}, err
	}
	b, err := s.boardFor(ctx, t.BoardID)
	if err != nil {
		return MoveResult{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionEditTask) {
		return MoveResult{}, ErrForbidden
	}

	if toListID == "" {
		toListID = t.ListID
	} else if toListID != t.ListID {
		dst, err := s.Boards.GetList(ctx, toListID)
		if errors.Is(err, board.ErrNotFound) {
			return MoveResult{}, ErrNotFound
		}
		if err != nil {
			return MoveResult{}, err
		}
		if dst.BoardID != t.BoardID {
			return MoveResult{}, ErrListMismatch
		}
	}
	return s.Repo.MoveTask(ctx, taskID, toListID, toIndex)
}

func (s *Service) Delete(ctx context.Context, actor authz.User, taskID string) (Task, error) {
	t, err := s.Repo.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	b, err := s.boardFor(ctx, t.BoardID)
	if err != nil {
		return Task{}, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionDeleteTask) {
		return Task{}, ErrForbidden
	}
	return s.Repo.DeleteTask(ctx, taskID)
}
