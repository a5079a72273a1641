package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/boardstream/project/internal/app/authz"
	"github.com/boardstream/project/internal/platform/auth"
)

type fakeUserRepo struct {
	users map[string]User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]User{}}
}

func (f *fakeUserRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeUserRepo) CreateUser(ctx context.Context, u User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) FindUserByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (f *fakeUserRepo) FindUserByID(ctx context.Context, userID string) (User, error) {
	u, ok := f.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindUserByName(ctx context.Context, name string) (User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (f *fakeUserRepo) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	out := make([]User, 0)
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func newIdentityService(repo Repository) *Service {
	n := 0
	return &Service{
		Repo:      repo,
		AuthToken: auth.NewManager("identity-test", time.Hour),
		NewID: func() string {
			n++
			return fmt.Sprintf("u%d", n)
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newIdentityService(repo)
	ctx := context.Background()

	reg, err := svc.Register(ctx, "  Dev@Example.COM ", " Dev ", "longenough")
	if err != nil {
		t.Fatal(err)
	}
	if reg.User.Email != "dev@example.com" || reg.User.Name != "Dev" {
		t.Fatalf("user = %+v", reg.User)
	}
	if reg.User.GlobalRole != authz.RoleMember {
		t.Fatalf("new users default to member, got %q", reg.User.GlobalRole)
	}
	if reg.User.PasswordHash == "longenough" || reg.User.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	claims, err := svc.AuthToken.Parse(reg.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != reg.User.ID || claims.Role != "member" {
		t.Fatalf("claims = %+v", claims)
	}

	login, err := svc.Login(ctx, "dev@example.com", "longenough")
	if err != nil {
		t.Fatal(err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login user = %+v", login.User)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newIdentityService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name            string
		email, nm, pass string
		want            error
	}{
		{"bad email", "not-an-email", "dev", "longenough", ErrInvalidEmail},
		{"empty name", "a@b.com", "  ", "longenough", ErrInvalidName},
		{"short password", "a@b.com", "dev", "short", ErrInvalidPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.email, tc.nm, tc.pass); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newIdentityService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "dev", "longenough"); err != nil {
		t.Fatal(err)
	}

	// Unknown email and wrong password both yield the same sentinel so the
	// API cannot be used to probe for accounts.
	if _, err := svc.Login(ctx, "nobody@b.com", "longenough"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.com", "wrongwrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
}

func TestResolveMentionIsCaseInsensitive(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newIdentityService(repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@b.com", "Alice", "longenough"); err != nil {
		t.Fatal(err)
	}

	u, err := svc.ResolveMention(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Alice" {
		t.Fatalf("resolved = %+v", u)
	}
	if _, err := svc.ResolveMention(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
