package board

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardstream/project/internal/app/authz"
)

var ErrNotFound = errors.New("not found")

type Member struct {
	UserID string     `json:"userId"`
	Role   authz.Role `json:"role"`
	Name   string     `json:"name,omitempty"`
	Email  string     `json:"email,omitempty"`
}

type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`

	// OwnerGlobalRole is joined from the user store for the visibility filter
	// and the delete-board policy. Not part of the API payload.
	OwnerGlobalRole authz.Role `json:"-"`
}

// AuthzView projects the board into the shape the authorization engine takes.
func (b Board) AuthzView() authz.Board {
	members := make([]authz.Member, 0, len(b.Members))
	for _, m := range b.Members {
		members = append(members, authz.Member{UserID: m.UserID, Role: m.Role})
	}
	return authz.Board{OwnerID: b.OwnerID, Members: members}
}

type List struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	TaskIDs   []string  `json:"tasks"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error

	CreateBoard(ctx context.Context, b Board) error
	GetBoard(ctx context.Context, boardID string) (Board, error)
	ListBoards(ctx context.Context) ([]Board, error)
	UpdateBoard(ctx context.Context, boardID, title, description string) error
	DeleteBoard(ctx context.Context, boardID string) error

	AddMember(ctx context.Context, boardID, userID string, role authz.Role) error
	UpdateMemberRole(ctx context.Context, boardID, userID string, role authz.Role) error
	RemoveMember(ctx context.Context, boardID, userID string) error

	CreateList(ctx context.Context, l List) error
	GetList(ctx context.Context, listID string) (List, error)
	ListsByBoard(ctx context.Context, boardID string) ([]List, error)
	UpdateListTitle(ctx context.Context, listID, title string) error
	DeleteList(ctx context.Context, listID string) error
	NextListPosition(ctx context.Context, boardID string) (int, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createBoardsSQL = `
CREATE TABLE IF NOT EXISTS boards (
  id text PRIMARY KEY,
  title text NOT NULL,
  description text NOT NULL DEFAULT '',
  owner_id text NOT NULL REFERENCES users(id),
  created_at timestamptz NOT NULL DEFAULT now()
)`

const createBoardMembersSQL = `
CREATE TABLE IF NOT EXISTS board_members (
  board_id text NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
  user_id text NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  role text NOT NULL DEFAULT 'member',
  added_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (board_id, user_id)
)`

const createListsSQL = `
CREATE TABLE IF NOT EXISTS lists (
  id text PRIMARY KEY,
  board_id text NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
  title text NOT NULL,
  position integer NOT NULL DEFAULT 0,
  task_ids text[] NOT NULL DEFAULT '{}',
  created_at timestamptz NOT NULL DEFAULT now()
)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, sql := range []string{createBoardsSQL, createBoardMembersSQL, createListsSQL} {
		if _, err := r.Pool.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) CreateBoard(ctx context.Context, b Board) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO boards (id, title, description, owner_id) VALUES ($1, $2, $3, $4)`,
		b.ID, b.Title, b.Description, b.OwnerID,
	); err != nil {
		return err
	}
	for _, m := range b.Members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO board_members (board_id, user_id, role)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (board_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
			b.ID, m.UserID, string(m.Role),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var b Board
	var ownerRole string
	err := r.Pool.QueryRow(ctx,
		`SELECT b.id, b.title, b.description, b.owner_id, b.created_at, u.global_role
		 FROM boards b
		 JOIN users u ON u.id = b.owner_id
		 WHERE b.id = $1`,
		boardID,
	).Scan(&b.ID, &b.Title, &b.Description, &b.OwnerID, &b.CreatedAt, &ownerRole)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Board{}, ErrNotFound
		}
		return Board{}, err
	}
	b.OwnerGlobalRole = authz.Role(ownerRole)

	members, err := r.membersOf(ctx, boardID)
	if err != nil {
		return Board{}, err
	}
	b.Members = members
	return b, nil
}

func (r *PostgresRepository) ListBoards(ctx context.Context) ([]Board, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT b.id, b.title, b.description, b.owner_id, b.created_at, u.global_role
		 FROM boards b
		 JOIN users u ON u.id = b.owner_id
		 ORDER BY b.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	boards := make([]Board, 0)
	for rows.Next() {
		var b Board
		var ownerRole string
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.OwnerID, &b.CreatedAt, &ownerRole); err != nil {
			return nil, err
		}
		b.OwnerGlobalRole = authz.Role(ownerRole)
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range boards {
		members, err := r.membersOf(ctx, boards[i].ID)
		if err != nil {
			return nil, err
		}
		boards[i].Members = members
	}
	return boards, nil
}

func (r *PostgresRepository) membersOf(ctx context.Context, boardID string) ([]Member, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT bm.user_id, bm.role, u.name, u.email
		 FROM board_members bm
		 JOIN users u ON u.id = bm.user_id
		 WHERE bm.board_id = $1
		 ORDER BY bm.added_at`,
		boardID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		var role string
		if err := rows.Scan(&m.UserID, &role, &m.Name, &m.Email); err != nil {
			return nil, err
		}
		m.Role = authz.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *PostgresRepository) UpdateBoard(ctx context.Context, boardID, title, description string) error {
	res, err := r.Pool.Exec(ctx,
		`UPDATE boards SET title = $2, description = $3 WHERE id = $1`,
		boardID, title, description,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteBoard(ctx context.Context, boardID string) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM tasks WHERE list_id IN (SELECT id FROM lists WHERE board_id = $1)`,
		boardID,
	); err != nil {
		return err
	}
	res, err := tx.Exec(ctx, `DELETE FROM boards WHERE id = $1`, boardID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) AddMember(ctx context.Context, boardID, userID string, role authz.Role) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO board_members (board_id, user_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (board_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		boardID, userID, string(role),
	)
	return err
}

func (r *PostgresRepository) UpdateMemberRole(ctx context.Context, boardID, userID string, role authz.Role) error {
	res, err := r.Pool.Exec(ctx,
		`UPDATE board_members SET role = $3 WHERE board_id = $1 AND user_id = $2`,
		boardID, userID, string(role),
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, boardID, userID string) error {
	res, err := r.Pool.Exec(ctx,
		`DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) CreateList(ctx context.Context, l List) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO lists (id, board_id, title, position) VALUES ($1, $2, $3, $4)`,
		l.ID, l.BoardID, l.Title, l.Position,
	)
	return err
}

func (r *PostgresRepository) GetList(ctx context.Context, listID string) (List, error) {
	var l List
	err := r.Pool.QueryRow(ctx,
		`SELECT id, board_id, title, position, task_ids, created_at FROM lists WHERE id = $1`,
		listID,
	).Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.TaskIDs, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return List{}, ErrNotFound
		}
		return List{}, err
	}
	return l, nil
}

func (r *PostgresRepository) ListsByBoard(ctx context.Context, boardID string) ([]List, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, board_id, title, position, task_ids, created_at
		 FROM lists
		 WHERE board_id = $1
		 ORDER BY position, created_at`,
		boardID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make([]List, 0)
	for rows.Next() {
		var l List
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.TaskIDs, &l.CreatedAt); err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (r *PostgresRepository) UpdateListTitle(ctx context.Context, listID, title string) error {
	res, err := r.Pool.Exec(ctx, `UPDATE lists SET title = $2 WHERE id = $1`, listID, title)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteList(ctx context.Context, listID string) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE list_id = $1`, listID); err != nil {
		return err
	}
	res, err := tx.Exec(ctx, `DELETE FROM lists WHERE id = $1`, listID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) NextListPosition(ctx context.Context, boardID string) (int, error) {
	var next int
	err := r.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM lists WHERE board_id = $1`,
		boardID,
	).Scan(&next)
	return next, err
}
