package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/platform/auth"
)

var (
	ErrInvalidEmail       = errors.New("email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Service struct {
	Repo      Repository
	AuthToken auth.Manager
	NewID     func() string
}

func NewService(repo Repository, tokenManager auth.Manager) *Service {
	return &Service{
		Repo:      repo,
		AuthToken: tokenManager,
		NewID:     nuid.Next,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, name, password string) (AuthResponse, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return AuthResponse{}, ErrInvalidEmail
	}
	if name == "" {
		return AuthResponse{}, ErrInvalidName
	}
	if len(strings.TrimSpace(password)) < 8 {
		return AuthResponse{}, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	u := User{
		ID:           s.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		GlobalRole:   authz.RoleMember,
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		return AuthResponse{}, err
	}
	return s.issueToken(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return AuthResponse{}, ErrInvalidCredentials
	}

	u, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResponse{}, ErrInvalidCredentials
		}
		return AuthResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return AuthResponse{}, ErrInvalidCredentials
	}
	return s.issueToken(u)
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	return s.Repo.FindUserByID(ctx, userID)
}

// ResolveMention maps one @name token to a user, or ErrNotFound.
func (s *Service) ResolveMention(ctx context.Context, name string) (User, error) {
	return s.Repo.FindUserByName(ctx, name)
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]User, error) {
	return s.Repo.SearchUsers(ctx, query, limit)
}

func (s *Service) issueToken(u User) (AuthResponse, error) {
	token, err := s.AuthToken.Sign(auth.Claims{
		Subject: u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    string(u.GlobalRole),
	})
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: token, User: u}, nil
}
