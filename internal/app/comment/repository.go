package comment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	BoardID   string    `json:"boardId"`
	AuthorID  string    `json:"authorId"`
	ParentID  string    `json:"parentId,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`

	AuthorName string `json:"authorName,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ActorID   string    `json:"actorId"`
	BoardID   string    `json:"boardId"`
	TaskID    string    `json:"taskId"`
	CommentID string    `json:"commentId"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	InsertComment(ctx context.Context, c Comment) error
	GetComment(ctx context.Context, commentID string) (Comment, error)
	CommentsByTask(ctx context.Context, taskID string) ([]Comment, error)
	DeleteComment(ctx context.Context, commentID string) error

	InsertNotification(ctx context.Context, n Notification) error
	NotificationsForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createCommentsSQL = `
CREATE TABLE IF NOT EXISTS comments (
  id text PRIMARY KEY,
  task_id text NOT NULL,
  board_id text NOT NULL,
  author_id text NOT NULL,
  parent_id text NOT NULL DEFAULT '',
  body text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now()
)`

const createNotificationsSQL = `
CREATE TABLE IF NOT EXISTS notifications (
  id text PRIMARY KEY,
  user_id text NOT NULL,
  actor_id text NOT NULL,
  board_id text NOT NULL,
  task_id text NOT NULL DEFAULT '',
  comment_id text NOT NULL DEFAULT '',
  message text NOT NULL,
  read boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL DEFAULT now()
)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, sql := range []string{createCommentsSQL, createNotificationsSQL} {
		if _, err := r.Pool.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) InsertComment(ctx context.Context, c Comment) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO comments (id, task_id, board_id, author_id, parent_id, body)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TaskID, c.BoardID, c.AuthorID, c.ParentID, c.Body,
	)
	return err
}

func (r *PostgresRepository) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var c Comment
	err := r.Pool.QueryRow(ctx,
		`SELECT c.id, c.task_id, c.board_id, c.author_id, c.parent_id, c.body, c.created_at,
		        COALESCE(u.name, '')
		 FROM comments c
		 LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.id = $1`,
		commentID,
	).Scan(&c.ID, &c.TaskID, &c.BoardID, &c.AuthorID, &c.ParentID, &c.Body, &c.CreatedAt, &c.AuthorName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return c, nil
}

func (r *PostgresRepository) CommentsByTask(ctx context.Context, taskID string) ([]Comment, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT c.id, c.task_id, c.board_id, c.author_id, c.parent_id, c.body, c.created_at,
		        COALESCE(u.name, '')
		 FROM comments c
		 LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.task_id = $1
		 ORDER BY c.created_at`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.BoardID, &c.AuthorID, &c.ParentID,
			&c.Body, &c.CreatedAt, &c.AuthorName); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *PostgresRepository) DeleteComment(ctx context.Context, commentID string) error {
	res, err := r.Pool.Exec(ctx, `DELETE FROM comments WHERE id = $1 OR parent_id = $1`, commentID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) InsertNotification(ctx context.Context, n Notification) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, actor_id, board_id, task_id, comment_id, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.ActorID, n.BoardID, n.TaskID, n.CommentID, n.Message,
	)
	return err
}

func (r *PostgresRepository) NotificationsForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT id, user_id, actor_id, board_id, task_id, comment_id, message, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &n.BoardID, &n.TaskID,
			&n.CommentID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	res, err := r.Pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
