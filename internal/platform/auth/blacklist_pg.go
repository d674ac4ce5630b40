package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBlacklist persists revoked access tokens in the blacklisted_access_tokens
// table. Rows are never updated or deleted by the application; expired rows
// are harmless and can be purged out of band.
type PGBlacklist struct {
	pool *pgxpool.Pool
}

func NewPGBlacklist(pool *pgxpool.Pool) *PGBlacklist {
	return &PGBlacklist{pool: pool}
}

func (b *PGBlacklist) Add(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO blacklisted_access_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		jti, userID, expiresAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Already blacklisted; revocation is idempotent.
		return nil
	}
	return err
}

func (b *PGBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blacklisted_access_tokens WHERE jti = $1)`, jti,
	).Scan(&exists)
	return exists, err
}
