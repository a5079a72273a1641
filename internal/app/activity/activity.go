package activity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nuid"

	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/app/board"
)

var ErrForbidden = errors.New("forbidden")

// DefaultLimit caps the feed at the newest entries.
const DefaultLimit = 100

type Entry struct {
	ID         string    `json:"id"`
	BoardID    string    `json:"boardId"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	TargetType string    `json:"targetType,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`

	// Joined from the user store for rendering the feed.
	ActorName  string `json:"actorName,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, e Entry) error
	ByBoard(ctx context.Context, boardID string, limit int) ([]Entry, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createActivitiesSQL = `
CREATE TABLE IF NOT EXISTS activities (
  id text PRIMARY KEY,
  board_id text NOT NULL,
  actor_id text NOT NULL,
  action text NOT NULL,
  target_type text NOT NULL DEFAULT '',
  target_id text NOT NULL DEFAULT '',
  details text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now()
)`

const createActivitiesIndexSQL = `
CREATE INDEX IF NOT EXISTS activities_board_created ON activities (board_id, created_at DESC)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, sql := range []string{createActivitiesSQL, createActivitiesIndexSQL} {
		if _, err := r.Pool.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO activities (id, board_id, actor_id, action, target_type, target_id, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.BoardID, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Details,
	)
	return err
}

func (r *PostgresRepository) ByBoard(ctx context.Context, boardID string, limit int) ([]Entry, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT a.id, a.board_id, a.actor_id, a.action, a.target_type, a.target_id, a.details, a.created_at,
		        COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM activities a
		 LEFT JOIN users u ON u.id = a.actor_id
		 WHERE a.board_id = $1
		 ORDER BY a.created_at DESC
		 LIMIT $2`,
		boardID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BoardID, &e.ActorID, &e.Action, &e.TargetType,
			&e.TargetID, &e.Details, &e.CreatedAt, &e.ActorName, &e.ActorEmail); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// BoardStore provides the board lookup for feed permission checks.
type BoardStore interface {
	GetBoard(ctx context.Context, boardID string) (board.Board, error)
}

type Service struct {
	Repo   Repository
	Boards BoardStore
	NewID  func() string
}

func NewService(repo Repository, boards BoardStore) *Service {
	return &Service{Repo: repo, Boards: boards, NewID: nuid.Next}
}

// Record appends one entry and returns it for event fan-out. Callers treat
// failures as non-fatal: a board mutation never rolls back because its
// activity write failed.
func (s *Service) Record(ctx context.Context, boardID, actorID, action, targetType, targetID, details string) (Entry, error) {
	e := Entry{
		ID:         s.NewID(),
		BoardID:    boardID,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
	}
	if err := s.Repo.Insert(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Feed returns the newest entries for a board, capped at DefaultLimit.
func (s *Service) Feed(ctx context.Context, actor authz.User, boardID string) ([]Entry, error) {
	b, err := s.Boards.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !authz.CanPerform(actor, b.AuthzView(), authz.ActionViewBoard) {
		return nil, ErrForbidden
	}
	return s.Repo.ByBoard(ctx, boardID, DefaultLimit)
}
