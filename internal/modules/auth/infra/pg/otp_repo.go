package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"driveon/internal/modules/auth/domain"
)

type OTPRepo struct{ db *pgxpool.Pool }

func NewOTPRepo(db *pgxpool.Pool) *OTPRepo { return &OTPRepo{db: db} }

func (r *OTPRepo) Issue(ctx context.Context, c domain.OneTimeCode) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := r.db.Exec(ctx,
		`INSERT INTO one_time_codes (identifier, code, channel, purpose, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.Identifier, c.Code, c.Channel, c.Purpose, c.ExpiresAt)
	return err
}

// Consume locks the newest unconsumed match so two concurrent attempts
// cannot both succeed on the same code.
func (r *OTPRepo) Consume(ctx context.Context, identifier, code string) (*domain.OneTimeCode, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var c domain.OneTimeCode
	row := tx.QueryRow(ctx, `
SELECT id, identifier, code, channel, purpose, expires_at, consumed_at, created_at
FROM one_time_codes
WHERE identifier = $1 AND code = $2 AND consumed_at IS NULL
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE`, identifier, code)

	if err := row.Scan(&c.ID, &c.Identifier, &c.Code, &c.Channel, &c.Purpose,
		&c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeInvalid
		}
		return nil, err
	}

	now := time.Now().UTC()
	if now.After(c.ExpiresAt) {
		// left unconsumed so a later resend+verify still works
		return nil, domain.ErrCodeExpired
	}

	if _, err := tx.Exec(ctx, `UPDATE one_time_codes SET consumed_at = $2 WHERE id = $1`, c.ID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	c.ConsumedAt = &now
	return &c, nil
}

func (r *OTPRepo) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.db.Exec(ctx, `DELETE FROM one_time_codes WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
