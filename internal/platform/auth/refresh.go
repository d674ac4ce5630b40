package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// RefreshSession is a stored refresh token, identified by its hash.
type RefreshSession struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// RefreshStore persists refresh tokens between logins. Tokens are stored
// hashed; revoking one deletes the row.
type RefreshStore interface {
	Save(ctx context.Context, s RefreshSession) error
	Find(ctx context.Context, tokenHash string) (*RefreshSession, error)
	Delete(ctx context.Context, tokenHash string) error
}

// PGRefreshStore stores refresh sessions in the refresh_tokens table.
type PGRefreshStore struct {
	pool *pgxpool.Pool
}

func NewPGRefreshStore(pool *pgxpool.Pool) *PGRefreshStore {
	return &PGRefreshStore{pool: pool}
}

func (s *PGRefreshStore) Save(ctx context.Context, sess RefreshSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		sess.TokenHash, sess.UserID, sess.ExpiresAt)
	return err
}

func (s *PGRefreshStore) Find(ctx context.Context, tokenHash string) (*RefreshSession, error) {
	sess := &RefreshSession{}
	err := s.pool.QueryRow(ctx,
		`SELECT token_hash, user_id, expires_at FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRefreshNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PGRefreshStore) Delete(ctx context.Context, tokenHash string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRefreshNotFound
	}
	return nil
}

// MemoryRefreshStore is an in-memory RefreshStore used in tests.
type MemoryRefreshStore struct {
	mu       sync.Mutex
	sessions map[string]RefreshSession
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{sessions: make(map[string]RefreshSession)}
}

func (s *MemoryRefreshStore) Save(_ context.Context, sess RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *MemoryRefreshStore) Find(_ context.Context, tokenHash string) (*RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, ErrRefreshNotFound
	}
	return &sess, nil
}

func (s *MemoryRefreshStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[tokenHash]; !ok {
		return ErrRefreshNotFound
	}
	delete(s.sessions, tokenHash)
	return nil
}
