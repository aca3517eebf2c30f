package refresh

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores records in <schema>.refresh_tokens.
//
// Postgres has no passive expiry: expired rows stay until Sweep removes them
// or CheckValid deletes them on access.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	schema string
}

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NewPostgresBackend wraps pool. An empty schema selects "authgate".
func NewPostgresBackend(pool *pgxpool.Pool, schema string) (*PostgresBackend, error) {
	if pool == nil {
		return nil, errors.New("refresh: nil pool")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "authgate"
	}
	if !pgIdentRe.MatchString(schema) {
		return nil, fmt.Errorf("refresh: invalid schema identifier %q", schema)
	}
	return &PostgresBackend{pool: pool, schema: schema}, nil
}

func (b *PostgresBackend) table() string {
	return pgx.Identifier{b.schema, "refresh_tokens"}.Sanitize()
}

// Put inserts rec. ttl is ignored; expires_at drives Sweep.
func (b *PostgresBackend) Put(ctx context.Context, rec Record, _ time.Duration) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO `+b.table()+` (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.UserID, rec.TokenHash, rec.ExpiresAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_refresh_tokens_token_hash" {
		return ErrDuplicateToken
	}
	return err
}

// GetByTokenHash loads the row with the given digest.
func (b *PostgresBackend) GetByTokenHash(ctx context.Context, tokenHash string) (Record, bool, error) {
	var rec Record
	err := b.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at
		FROM `+b.table()+`
		WHERE token_hash = $1
	`, tokenHash).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return rec, true, nil
}

// Delete removes the row with rec.ID.
func (b *PostgresBackend) Delete(ctx context.Context, rec Record) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM `+b.table()+` WHERE id = $1`, rec.ID)
	return err
}

// DeleteByUser removes every row owned by userID.
func (b *PostgresBackend) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM `+b.table()+` WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Sweep deletes rows with expires_at <= now.
func (b *PostgresBackend) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM `+b.table()+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
