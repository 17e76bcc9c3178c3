package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the category with the given name, creating it on
// first use. Names are stored lowercase.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category

	// ON CONFLICT DO UPDATE makes the insert return the existing row too,
	// so concurrent first-use races resolve to a single category.
	sql := `
		INSERT INTO categories (name) VALUES (LOWER($1))
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`

	err := r.db.QueryRow(ctx, sql, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error getting or creating category: %w", err)
	}
	return &c, nil
}

// GetByName retrieves a category by name, case-insensitive
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	query := squirrel.Select("id", "name", "created_at").
		From("categories").
		Where("name = LOWER(?)", name).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var c models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("error getting category: %w", err)
	}
	return &c, nil
}

// List retrieves all categories ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// SubscriberCounts returns the number of subscribed accounts per category id
func (r *CategoryRepository) SubscriberCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category_id, COUNT(*) FROM account_categories GROUP BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("error counting subscribers: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("error scanning subscriber count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
