package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkauth/server/internal/model"
)

var _ model.AccountStore = (*AccountRepository)(nil)

const uniqueViolation = "23505"

type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

const accountColumns = `id, email, display_name, verified, token, token_expires_at, token_consumed, created_at, updated_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.Verified,
		&account.Token, &account.TokenExpiresAt, &account.TokenConsumed,
		&account.CreatedAt, &account.UpdatedAt,
	)
	return account, err
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by email: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account model.Account) (model.Account, error) {
	query := `INSERT INTO accounts (id, email, display_name, verified, token, token_expires_at, token_consumed, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING ` + accountColumns

	saved, err := scanAccount(r.db.QueryRow(ctx, query,
		account.ID, account.Email, account.DisplayName, account.Verified,
		account.Token, account.TokenExpiresAt, account.TokenConsumed,
		account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, model.ErrConflict
		}
		return model.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	return saved, nil
}

// RefreshToken unconditionally replaces the outstanding token, invalidating
// any previously issued link for the account.
func (r *AccountRepository) RefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time, displayName *string) (model.Account, error) {
	const query = `
        UPDATE accounts
        SET token = $2,
            token_expires_at = $3,
            token_consumed = FALSE,
            display_name = COALESCE($4, display_name),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRow(ctx, query, id, token, expiresAt, displayName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.Account{}, model.ErrConflict
		}
		return model.Account{}, fmt.Errorf("failed to refresh account token: %w", err)
	}

	return account, nil
}

// ClaimToken is the lookup-and-claim of verification. The WHERE clause and
// the mutation run as one conditional update, so out of any number of
// concurrent claims of the same token exactly one sees a row.
func (r *AccountRepository) ClaimToken(ctx context.Context, token string, now time.Time) (model.Account, error) {
	const query = `
        UPDATE accounts
        SET verified = TRUE,
            token = NULL,
            token_expires_at = NULL,
            token_consumed = TRUE,
            updated_at = NOW()
        WHERE token = $1 AND token_consumed = FALSE AND token_expires_at > $2
        RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRow(ctx, query, token, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, model.ErrTokenInvalid
		}
		return model.Account{}, fmt.Errorf("failed to claim token: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE accounts
        SET token = NULL,
            token_expires_at = NULL,
            token_consumed = FALSE,
            updated_at = NOW()
        WHERE token IS NOT NULL AND token_expires_at < $1
    `

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
