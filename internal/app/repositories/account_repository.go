package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// AccountRepository handles database operations for verified accounts
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = "id, email, telegram_id, handle, newsletter_time, last_newsletter_sent, created_at"

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.TelegramID,
		&a.Handle,
		&a.NewsletterTime,
		&a.LastNewsletterSent,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error scanning account: %w", err)
	}
	return &a, nil
}

// GetByTelegramID retrieves an account by its telegram id.
// Returns (nil, nil) when no row exists; callers treat the absence as
// "not verified".
func (r *AccountRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error) {
	query := squirrel.Select(accountColumns).
		From("accounts").
		Where("telegram_id = ?", telegramID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	return scanAccount(r.db.QueryRow(ctx, sql, args...))
}

// Upsert creates the account row at verification completion, or refreshes
// the telegram identity on an existing row when the same email verifies
// again from a new telegram account.
func (r *AccountRepository) Upsert(ctx context.Context, email string, telegramID int64, handle string) (*models.Account, error) {
	sql := `
		INSERT INTO accounts (email, telegram_id, handle)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET telegram_id = EXCLUDED.telegram_id, handle = EXCLUDED.handle
		RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRow(ctx, sql, email, telegramID, handle))
	if err != nil {
		return nil, fmt.Errorf("error upserting account: %w", err)
	}
	if account == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	return account, nil
}

// UpdateNewsletterTime sets the preferred daily digest time (HH:MM)
func (r *AccountRepository) UpdateNewsletterTime(ctx context.Context, accountID int64, hhmm string) error {
	query := squirrel.Update("accounts").
		Set("newsletter_time", hhmm).
		Where("id = ?", accountID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating newsletter time: %w", err)
	}
	return nil
}

// UpdateLastNewsletterSent records a digest delivery for the double-send guard
func (r *AccountRepository) UpdateLastNewsletterSent(ctx context.Context, accountID int64, sentAt time.Time) error {
	query := squirrel.Update("accounts").
		Set("last_newsletter_sent", sentAt).
		Where("id = ?", accountID).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating last newsletter sent: %w", err)
	}
	return nil
}

// ListByNewsletterTime retrieves accounts whose preferred digest time
// equals the given HH:MM minute
func (r *AccountRepository) ListByNewsletterTime(ctx context.Context, hhmm string) ([]*models.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE newsletter_time = $1`

	rows, err := r.db.Query(ctx, sql, hhmm)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts by newsletter time: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ListSubscribed retrieves every account holding at least one category subscription
func (r *AccountRepository) ListSubscribed(ctx context.Context) ([]*models.Account, error) {
	sql := `
		SELECT DISTINCT ON (a.id) ` + prefixed(accountColumns, "a.") + `
		FROM accounts a
		JOIN account_categories ac ON ac.account_id = a.id
		ORDER BY a.id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("error listing subscribed accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
