package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardstream/project/internal/app/authz"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	GlobalRole   authz.Role `json:"globalRole"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	CreateUser(ctx context.Context, user User) error
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, userID string) (User, error)
	// FindUserByName matches the display name exactly, case-insensitively.
	// Used to resolve @mention tokens in comments.
	FindUserByName(ctx context.Context, name string) (User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

const createUsersSQL = `
CREATE TABLE IF NOT EXISTS users (
  id text PRIMARY KEY,
  email text NOT NULL UNIQUE,
  name text NOT NULL,
  password_hash text NOT NULL,
  global_role text NOT NULL DEFAULT 'member',
  created_at timestamptz NOT NULL DEFAULT now()
)`

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, createUsersSQL)
	return err
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user User) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, global_role) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Name, user.PasswordHash, string(user.GlobalRole),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(ctx,
		`SELECT id, email, name, password_hash, global_role FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, userID string) (User, error) {
	return r.scanOne(ctx,
		`SELECT id, email, name, password_hash, global_role FROM users WHERE id = $1`,
		userID,
	)
}

func (r *PostgresRepository) FindUserByName(ctx context.Context, name string) (User, error) {
	return r.scanOne(ctx,
		`SELECT id, email, name, password_hash, global_role FROM users WHERE lower(name) = lower($1)`,
		strings.TrimSpace(name),
	)
}

func (r *PostgresRepository) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT id, email, name, password_hash, global_role
		 FROM users
		 WHERE lower(name) LIKE lower($1) OR lower(email) LIKE lower($1)
		 ORDER BY name
		 LIMIT $2`,
		"%"+strings.TrimSpace(query)+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, limit)
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role); err != nil {
			return nil, err
		}
		u.GlobalRole = authz.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepository) scanOne(ctx context.Context, sql string, arg any) (User, error) {
	var u User
	var role string
	err := r.Pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.GlobalRole = authz.Role(role)
	return u, nil
}
