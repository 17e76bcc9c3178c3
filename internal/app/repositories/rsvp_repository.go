package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/db"
)

// RSVPRepository handles database operations for RSVPs
type RSVPRepository struct {
	db *pgxpool.Pool
}

// NewRSVPRepository creates a new RSVPRepository
func NewRSVPRepository(db *pgxpool.Pool) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Upsert records or overwrites the account's RSVP for an event and returns
// the fresh per-status counts. The insert and the count read run in one
// transaction; the row-level lock on the unique (event_id, account_id) key
// serializes concurrent taps so the handler never computes counts itself.
func (r *RSVPRepository) Upsert(ctx context.Context, eventID, accountID int64, status models.RSVPStatus) (models.RSVPCounts, error) {
	var counts models.RSVPCounts

	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO rsvps (event_id, account_id, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id, account_id)
			DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
			eventID, accountID, string(status))
		if err != nil {
			return fmt.Errorf("error upserting rsvp: %w", err)
		}

		return tx.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE status = 'going'),
				COUNT(*) FILTER (WHERE status = 'interested')
			FROM rsvps WHERE event_id = $1`,
			eventID).Scan(&counts.Going, &counts.Interested)
	})
	if err != nil {
		return models.RSVPCounts{}, err
	}
	return counts, nil
}

// Counts returns the per-status RSVP totals for an event
func (r *RSVPRepository) Counts(ctx context.Context, eventID int64) (models.RSVPCounts, error) {
	var counts models.RSVPCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'going'),
			COUNT(*) FILTER (WHERE status = 'interested')
		FROM rsvps WHERE event_id = $1`,
		eventID).Scan(&counts.Going, &counts.Interested)
	if err != nil {
		return models.RSVPCounts{}, fmt.Errorf("error counting rsvps: %w", err)
	}
	return counts, nil
}
