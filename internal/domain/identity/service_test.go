package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cliniq/cliniq/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Username == u.Username && existing.Active {
			return ErrUsernameTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByUsernameAndRole(ctx context.Context, username string, role Role) (*User, error) {
	u, err := m.GetByUsername(ctx, username)
	if err != nil || u.Role != role {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	existing, ok := m.users[u.ID]
	if !ok || !existing.Active {
		return ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok || !u.Active {
		return ErrNotFound
	}
	u.Active = false
	return nil
}

func (m *mockRepo) ListByRole(_ context.Context, role Role, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if u.Role == role && u.Active {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, len(result), nil
}

func (m *mockRepo) Search(_ context.Context, query string, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if u.Active && strings.Contains(u.Username, query) {
			result = append(result, u)
		}
	}
	return result, len(result), nil
}

func newTestService(repo Repository) *Service {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(repo, issuer, auth.NewMemoryBlacklist(), auth.NewMemoryRefreshStore(), 24*time.Hour)
}

// -- Tests --

func TestRegister(t *testing.T) {
	svc := newTestService(newMockRepo())

	u, err := svc.Register(context.Background(), "drsmith", "s3cret", RoleDoctor)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
	if !u.Active {
		t.Error("new user should be active")
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, err := svc.Register(context.Background(), "x", "pw", Role("superuser")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw", RolePatient); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "pw2", RolePatient); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterAfterSoftDeleteReusesUsername(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "pw", RolePatient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SoftDelete(ctx, u.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "pw", RolePatient); err != nil {
		t.Errorf("username should be reusable after deactivation, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "drsmith", "s3cret", RoleDoctor); err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, u, err := svc.Login(ctx, "drsmith", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected both tokens")
	}
	if u.Username != "drsmith" {
		t.Errorf("unexpected user %q", u.Username)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService(newMockRepo())

	if _, _, err := svc.Login(context.Background(), "ghost", "pw"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "drsmith", "s3cret", RoleDoctor); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "drsmith", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
}

func TestLoginDeactivatedUser(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "pw", RolePatient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SoftDelete(ctx, u.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "pw"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deactivated user, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "drsmith", "s3cret", RoleDoctor); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, _, err := svc.Login(ctx, "drsmith", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if access == "" {
		t.Error("expected new access token")
	}

	if _, err := svc.Refresh(ctx, "not-a-token"); !errors.Is(err, ErrBadRefresh) {
		t.Errorf("expected ErrBadRefresh, got %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	repo := newMockRepo()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	blacklist := auth.NewMemoryBlacklist()
	defer blacklist.Close()
	svc := NewService(repo, issuer, blacklist, auth.NewMemoryRefreshStore(), 24*time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "drsmith", "s3cret", RoleDoctor); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, _, err := svc.Login(ctx, "drsmith", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := issuer.Parse(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}

	if err := svc.Logout(ctx, claims, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	revoked, err := blacklist.IsBlacklisted(ctx, claims.JTI())
	if err != nil {
		t.Fatalf("IsBlacklisted: %v", err)
	}
	if !revoked {
		t.Error("access token not blacklisted after logout")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrBadRefresh) {
		t.Errorf("refresh token should be dead after logout, got %v", err)
	}
	if err := svc.Logout(ctx, claims, pair.RefreshToken); !errors.Is(err, ErrBadRefresh) {
		t.Errorf("second logout should fail, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "old-pw", RolePatient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "new-pw"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials for wrong old password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "new-pw"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "old-pw"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("old password should be rejected, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "pw", RolePatient)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	newName := "alice2"
	newRole := RoleDoctor
	updated, err := svc.UpdateUser(ctx, u.ID, UpdateUserParams{Username: &newName, Role: &newRole})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Username != "alice2" || updated.Role != RoleDoctor {
		t.Errorf("update not applied: %+v", updated)
	}

	badRole := Role("superuser")
	if _, err := svc.UpdateUser(ctx, u.ID, UpdateUserParams{Role: &badRole}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}

	if _, err := svc.UpdateUser(ctx, uuid.New(), UpdateUserParams{Username: &newName}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestListDoctors(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	svc.Register(ctx, "house", "pw", RoleDoctor)
	svc.Register(ctx, "wilson", "pw", RoleDoctor)
	svc.Register(ctx, "alice", "pw", RolePatient)

	doctors, total, err := svc.ListDoctors(ctx, 20, 0)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if total != 2 || len(doctors) != 2 {
		t.Fatalf("expected 2 doctors, got total=%d len=%d", total, len(doctors))
	}
	for _, d := range doctors {
		if d.Role != RoleDoctor {
			t.Errorf("non-doctor in list: %+v", d)
		}
	}
}
