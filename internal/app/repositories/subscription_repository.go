package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles account-category subscription rows
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ListCategoryIDs retrieves the category ids an account follows
func (r *SubscriptionRepository) ListCategoryIDs(ctx context.Context, accountID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category_id FROM account_categories WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning subscription: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Toggle flips the subscription and reports the new state: true when the
// account is now subscribed, false when the row was removed.
func (r *SubscriptionRepository) Toggle(ctx context.Context, accountID, categoryID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM account_categories WHERE account_id = $1 AND category_id = $2`,
		accountID, categoryID)
	if err != nil {
		return false, fmt.Errorf("error removing subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO account_categories (account_id, category_id) VALUES ($1, $2)
		 ON CONFLICT (account_id, category_id) DO NOTHING`,
		accountID, categoryID)
	if err != nil {
		return false, fmt.Errorf("error adding subscription: %w", err)
	}
	return true, nil
}
