package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unipulse/unipulse-bot/internal/app/models"
)

// ReminderRepository handles database operations for reminders
type ReminderRepository struct {
	db *pgxpool.Pool
}

// NewReminderRepository creates a new ReminderRepository
func NewReminderRepository(db *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// CreateIfAbsent inserts a reminder unless one already exists for the same
// (account, event, remind_at) triple. Returns true when a row was created.
func (r *ReminderRepository) CreateIfAbsent(ctx context.Context, accountID, eventID int64, remindAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO reminders (account_id, event_id, remind_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, event_id, remind_at) DO NOTHING`,
		accountID, eventID, remindAt)
	if err != nil {
		return false, fmt.Errorf("error creating reminder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DueUnsent retrieves a bounded batch of unsent reminders whose fire-time
// has passed, joined with recipient and event data for delivery
func (r *ReminderRepository) DueUnsent(ctx context.Context, now time.Time, limit int) ([]*models.DueReminder, error) {
	sql := `
		SELECT rm.id, rm.account_id, rm.event_id, rm.remind_at, rm.sent, rm.created_at,
		       a.telegram_id, e.text, e.date
		FROM reminders rm
		JOIN accounts a ON a.id = rm.account_id
		JOIN events e ON e.id = rm.event_id
		WHERE NOT rm.sent AND NOT e.is_deleted AND rm.remind_at <= $1
		ORDER BY rm.remind_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, now, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying due reminders: %w", err)
	}
	defer rows.Close()

	var due []*models.DueReminder
	for rows.Next() {
		var d models.DueReminder
		err := rows.Scan(
			&d.ID, &d.AccountID, &d.EventID, &d.RemindAt, &d.Sent, &d.CreatedAt,
			&d.TelegramID, &d.EventText, &d.EventDate,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning due reminder: %w", err)
		}
		due = append(due, &d)
	}
	return due, rows.Err()
}

// MarkSent flags a reminder as delivered
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64) error {
	query := squirrel.Update("reminders").
		Set("sent", true).
		Where("id = ?", id).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	_, err = r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error marking reminder sent: %w", err)
	}
	return nil
}
