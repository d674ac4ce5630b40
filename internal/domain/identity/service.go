package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliniq/cliniq/internal/platform/auth"
)

// Service implements account management and the login session lifecycle.
type Service struct {
	users      Repository
	issuer     *auth.TokenIssuer
	blacklist  auth.Blacklist
	refresh    auth.RefreshStore
	refreshTTL time.Duration
}

func NewService(users Repository, issuer *auth.TokenIssuer, blacklist auth.Blacklist, refresh auth.RefreshStore, refreshTTL time.Duration) *Service {
	return &Service{
		users:      users,
		issuer:     issuer,
		blacklist:  blacklist,
		refresh:    refresh,
		refreshTTL: refreshTTL,
	}
}

// Register creates a new active account with a hashed password.
func (s *Service) Register(ctx context.Context, username, password string, role Role) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates a user and issues an access/refresh token pair.
// Deactivated accounts cannot log in.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, *User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, nil, ErrBadCredentials
	}

	access, _, err := s.issuer.Issue(u.ID.String(), u.Username, u.Role.String())
	if err != nil {
		return nil, nil, fmt.Errorf("issuing access token: %w", err)
	}
	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generating refresh token: %w", err)
	}
	if err := s.refresh.Save(ctx, auth.RefreshSession{
		TokenHash: refreshHash,
		UserID:    u.ID.String(),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}); err != nil {
		return nil, nil, fmt.Errorf("saving refresh session: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: rawRefresh}, u, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (string, error) {
	sess, err := s.refresh.Find(ctx, auth.HashRefreshToken(rawRefresh))
	if err != nil {
		return "", ErrBadRefresh
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.refresh.Delete(ctx, sess.TokenHash)
		return "", ErrBadRefresh
	}

	id, err := uuid.Parse(sess.UserID)
	if err != nil {
		return "", ErrBadRefresh
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	access, _, err := s.issuer.Issue(u.ID.String(), u.Username, u.Role.String())
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return access, nil
}

// Logout revokes the current access token and deletes the refresh session.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims, rawRefresh string) error {
	if err := s.refresh.Delete(ctx, auth.HashRefreshToken(rawRefresh)); err != nil {
		return ErrBadRefresh
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Add(ctx, claims.JTI(), claims.UserID, expiresAt); err != nil {
		return fmt.Errorf("blacklisting access token: %w", err)
	}
	return nil
}

// Me returns the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// ChangePassword verifies the old password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, oldPassword) {
		return ErrBadCredentials
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = hash
	return s.users.Update(ctx, u)
}

// UpdateUserParams carries the optional fields of a user update.
type UpdateUserParams struct {
	Username *string `json:"username,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

// UpdateUser applies a partial update to an active account.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Username != nil {
		if *params.Username == "" {
			return nil, fmt.Errorf("username cannot be empty")
		}
		u.Username = *params.Username
	}
	if params.Role != nil {
		if !params.Role.Valid() {
			return nil, ErrInvalidRole
		}
		u.Role = *params.Role
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SoftDelete deactivates an account. The row is kept so past appointments
// stay attributable; the username becomes reusable.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.users.Deactivate(ctx, id)
}

// SearchUsers finds active accounts whose username contains query.
func (s *Service) SearchUsers(ctx context.Context, query string, limit, offset int) ([]*User, int, error) {
	return s.users.Search(ctx, query, limit, offset)
}

// ListDoctors returns the active doctor accounts.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, RoleDoctor, limit, offset)
}
