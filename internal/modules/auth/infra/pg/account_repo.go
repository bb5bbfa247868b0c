package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"driveon/internal/modules/auth/domain"
)

const queryTimeout = 5 * time.Second

const accountColumns = `id, email, phone, name, role, email_verified, phone_verified,
       active, referral_code, referred_by, created_at, updated_at`

type AccountRepo struct{ db *pgxpool.Pool }

func NewAccountRepo(db *pgxpool.Pool) *AccountRepo { return &AccountRepo{db: db} }

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.Phone, &a.Name, &a.Role,
		&a.EmailVerified, &a.PhoneVerified, &a.Active,
		&a.ReferralCode, &a.ReferredBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, p domain.CreateAccountParams) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	role := p.Role
	if role == "" {
		role = domain.RoleStandard
	}
	q := `
INSERT INTO accounts (email, phone, name, role, referral_code, referred_by)
VALUES (LOWER($1), $2, $3, $4, $5, $6)
RETURNING ` + accountColumns
	row := r.db.QueryRow(ctx, q, p.Email, p.Phone, p.Name, role, p.ReferralCode, p.ReferredBy)
	a, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "accounts_email_key":
				return nil, domain.ErrEmailTaken
			case "accounts_phone_key":
				return nil, domain.ErrPhoneTaken
			}
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getBy(ctx, `email = LOWER($1)`, email)
}

func (r *AccountRepo) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.getBy(ctx, `phone = $1`, phone)
}

func (r *AccountRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.getBy(ctx, `referral_code = $1`, code)
}

func (r *AccountRepo) getBy(ctx context.Context, where string, arg any) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	return scanAccount(row)
}

func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = LOWER($1))`, email)
}

func (r *AccountRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE phone = $1)`, phone)
}

func (r *AccountRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var ok bool
	if err := r.db.QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *AccountRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.set(ctx, `UPDATE accounts SET email_verified = true, updated_at = now() WHERE id = $1`, id)
}

func (r *AccountRepo) MarkPhoneVerified(ctx context.Context, id string) error {
	return r.set(ctx, `UPDATE accounts SET phone_verified = true, updated_at = now() WHERE id = $1`, id)
}

func (r *AccountRepo) Deactivate(ctx context.Context, id string) error {
	return r.set(ctx, `UPDATE accounts SET active = false, updated_at = now() WHERE id = $1`, id)
}

func (r *AccountRepo) set(ctx context.Context, q, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
