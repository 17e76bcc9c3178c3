package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// eventColumns selects the event row plus its first poster image URL.
const eventColumns = `
	e.id, e.text, e.title, e.date, e.end_date, e.location, e.description,
	e.account_id, e.category_id, e.text_hash, e.is_deleted, e.deleted_at, e.created_at,
	(SELECT ei.url FROM event_images ei WHERE ei.event_id = e.id ORDER BY ei.id LIMIT 1) AS image_url`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID,
		&ev.Text,
		&ev.Title,
		&ev.Date,
		&ev.EndDate,
		&ev.Location,
		&ev.Description,
		&ev.AccountID,
		&ev.CategoryID,
		&ev.TextHash,
		&ev.IsDeleted,
		&ev.DeletedAt,
		&ev.CreatedAt,
		&ev.ImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("error scanning event: %w", err)
	}
	return &ev, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, sql string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Create inserts a new event and fills in its generated id and timestamp
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	sql := `
		INSERT INTO events (text, title, date, end_date, location, description, account_id, category_id, text_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, sql,
		ev.Text, ev.Title, ev.Date, ev.EndDate, ev.Location, ev.Description,
		ev.AccountID, ev.CategoryID, ev.TextHash,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by id, including deleted rows so that admin
// audit and ownership checks can still address them
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	sql := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1`
	return scanEvent(r.db.QueryRow(ctx, sql, id))
}

// ExistsByHash reports whether a live event with the given content hash exists
func (r *EventRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	sql := `SELECT EXISTS(SELECT 1 FROM events WHERE text_hash = $1 AND NOT is_deleted)`
	if err := r.db.QueryRow(ctx, sql, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking event hash: %w", err)
	}
	return exists, nil
}

// UpdateField updates a single editable column. The field must come from
// the fixed editable set; anything else is rejected before touching SQL.
func (r *EventRepository) UpdateField(ctx context.Context, id int64, field models.EventField, value any) error {
	if !field.Valid() {
		return apperrors.NewBadRequestError(fmt.Sprintf("field %q is not editable", field))
	}

	sql := fmt.Sprintf(`UPDATE events SET %s = $1 WHERE id = $2`, string(field))
	tag, err := r.db.Exec(ctx, sql, value, id)
	if err != nil {
		return fmt.Errorf("error updating event field %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// AddImage stores an uploaded poster URL for an event
func (r *EventRepository) AddImage(ctx context.Context, eventID int64, url string) (*models.EventImage, error) {
	var img models.EventImage
	sql := `INSERT INTO event_images (event_id, url) VALUES ($1, $2) RETURNING id, event_id, url`
	err := r.db.QueryRow(ctx, sql, eventID, url).Scan(&img.ID, &img.EventID, &img.URL)
	if err != nil {
		return nil, fmt.Errorf("error saving event image: %w", err)
	}
	return &img, nil
}

// SoftDelete marks an event deleted while keeping the row
func (r *EventRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET is_deleted = TRUE, deleted_at = $1 WHERE id = $2 AND NOT is_deleted`, at, id)
	if err != nil {
		return fmt.Errorf("error soft-deleting event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// ListUpcoming retrieves live events starting at or after now, soonest first
func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	sql := `
		SELECT ` + eventColumns + `
		FROM events e
		WHERE NOT e.is_deleted AND e.date >= $1
		ORDER BY e.date ASC
		LIMIT $2`
	return r.queryEvents(ctx, sql, now, limit)
}

// ListByAccount retrieves an account's own events, newest first, including
// deleted ones so the moderation panel can show their state
func (r *EventRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Event, error) {
	sql := `
		SELECT ` + eventColumns + `
		FROM events e
		WHERE e.account_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2`
	return r.queryEvents(ctx, sql, accountID, limit)
}

// Trending retrieves live, not-yet-past events ranked by total RSVP count
func (r *EventRepository) Trending(ctx context.Context, now time.Time, limit int) ([]*models.Event, error) {
	sql := `
		SELECT ` + eventColumns + `
		FROM events e
		JOIN rsvps r ON r.event_id = e.id
		WHERE NOT e.is_deleted AND (e.date IS NULL OR e.date >= $1)
		GROUP BY e.id
		ORDER BY COUNT(r.id) DESC, e.id
		LIMIT $2`
	return r.queryEvents(ctx, sql, now, limit)
}

// TopByRSVP ranks live events by total RSVP count for the weekly roundup
func (r *EventRepository) TopByRSVP(ctx context.Context, limit int) ([]models.RankedEvent, error) {
	sql := `
		SELECT ` + eventColumns + `, COUNT(r.id) AS rsvp_count
		FROM events e
		JOIN rsvps r ON r.event_id = e.id
		WHERE NOT e.is_deleted
		GROUP BY e.id
		ORDER BY rsvp_count DESC, e.id
		LIMIT $1`

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying top events: %w", err)
	}
	defer rows.Close()

	var top []models.RankedEvent
	for rows.Next() {
		var ev models.Event
		var count int
		err := rows.Scan(
			&ev.ID, &ev.Text, &ev.Title, &ev.Date, &ev.EndDate, &ev.Location, &ev.Description,
			&ev.AccountID, &ev.CategoryID, &ev.TextHash, &ev.IsDeleted, &ev.DeletedAt, &ev.CreatedAt,
			&ev.ImageURL, &count,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning top event: %w", err)
		}
		top = append(top, models.RankedEvent{Event: &ev, Count: count})
	}
	return top, rows.Err()
}

// Search reproduces the backend search routine: case-insensitive text match
// over the event body and structured fields, or an exact case-insensitive
// category name match. Deleted events are excluded.
func (r *EventRepository) Search(ctx context.Context, query, category *string, limit int) ([]*models.Event, error) {
	switch {
	case category != nil:
		sql := `
			SELECT ` + eventColumns + `
			FROM events e
			JOIN categories c ON c.id = e.category_id
			WHERE NOT e.is_deleted AND LOWER(c.name) = LOWER($1)
			ORDER BY e.date ASC NULLS LAST
			LIMIT $2`
		return r.queryEvents(ctx, sql, *category, limit)

	case query != nil:
		pattern := "%" + *query + "%"
		sql := `
			SELECT ` + eventColumns + `
			FROM events e
			WHERE NOT e.is_deleted AND (
				e.text ILIKE $1 OR e.title ILIKE $1 OR e.location ILIKE $1 OR e.description ILIKE $1
			)
			ORDER BY e.date ASC NULLS LAST
			LIMIT $2`
		return r.queryEvents(ctx, sql, pattern, limit)
	}

	return nil, apperrors.NewBadRequestError("search needs a query or a category")
}

// CountCreatedSince counts an account's event posts after the cutoff,
// which backs the durable sliding-window rate limit
func (r *EventRepository) CountCreatedSince(ctx context.Context, accountID int64, since time.Time) (int, error) {
	var count int
	sql := `SELECT COUNT(*) FROM events WHERE account_id = $1 AND created_at > $2`
	if err := r.db.QueryRow(ctx, sql, accountID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting recent events: %w", err)
	}
	return count, nil
}

// UpcomingInCategories retrieves live events in the given categories whose
// start falls inside [from, to), soonest first. Used by the daily digest.
func (r *EventRepository) UpcomingInCategories(ctx context.Context, categoryIDs []int64, from, to time.Time, limit int) ([]*models.Event, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	sql := `
		SELECT ` + eventColumns + `
		FROM events e
		WHERE NOT e.is_deleted
		  AND e.category_id = ANY($1)
		  AND e.date >= $2 AND e.date < $3
		ORDER BY e.date ASC
		LIMIT $4`
	return r.queryEvents(ctx, sql, categoryIDs, from, to, limit)
}
