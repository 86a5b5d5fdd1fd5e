package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/canteen-service/internal/domain"
)

// StatisticsRepository encapsulates read-only aggregate queries.
type StatisticsRepository interface {
	CompanyTotals(ctx context.Context, companyID int64) (total int64, avg *float64, err error)
	PopularToday(ctx context.Context, companyID int64, day time.Time) (*domain.PopularDish, error)
	PopularHistory(ctx context.Context, companyID int64, limit int) ([]domain.PopularDish, error)
}

type statisticsRepository struct {
	pool *pgxpool.Pool
}

// NewStatisticsRepository instantiates repository.
func NewStatisticsRepository(pool *pgxpool.Pool) StatisticsRepository {
	return &statisticsRepository{pool: pool}
}

func (r *statisticsRepository) CompanyTotals(ctx context.Context, companyID int64) (int64, *float64, error) {
	const query = `SELECT COUNT(*), AVG(rating) FROM dish_evaluations WHERE company_id = $1`
	var total int64
	var avg *float64
	if err := r.pool.QueryRow(ctx, query, companyID).Scan(&total, &avg); err != nil {
		return 0, nil, err
	}
	return total, avg, nil
}

// PopularToday returns the dish with the highest mean rating among the
// company's evaluations for the given day, or nil when none exist.
func (r *statisticsRepository) PopularToday(ctx context.Context, companyID int64, day time.Time) (*domain.PopularDish, error) {
	const query = `
        SELECT d.id, d.name, dc.name AS category, COALESCE(d.image_url, '') AS image,
               AVG(de.rating) AS avg_rating, COUNT(de.id) AS rating_count
        FROM dish_evaluations de
        JOIN dishes d ON de.dish_id = d.id
        JOIN dish_categories dc ON d.category_id = dc.id
        WHERE de.company_id = $1 AND de.evaluation_date = $2
        GROUP BY d.id, d.name, dc.name, d.image_url
        ORDER BY avg_rating DESC, rating_count DESC
        LIMIT 1`
	var dish domain.PopularDish
	err := r.pool.QueryRow(ctx, query, companyID, day).Scan(
		&dish.ID,
		&dish.Name,
		&dish.Category,
		&dish.Image,
		&dish.AvgRating,
		&dish.RatingCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dish, nil
}

// PopularHistory ranks dishes by their persisted aggregates across all time,
// restricted to dishes with at least one evaluation.
func (r *statisticsRepository) PopularHistory(ctx context.Context, companyID int64, limit int) ([]domain.PopularDish, error) {
	const query = `
        SELECT d.id, d.name, dc.name AS category, COALESCE(d.image_url, '') AS image,
               d.rating AS avg_rating, d.rating_count
        FROM dishes d
        JOIN dish_categories dc ON d.category_id = dc.id
        WHERE d.company_id = $1 AND d.rating_count > 0
        ORDER BY d.rating DESC, d.rating_count DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dishes := []domain.PopularDish{}
	for rows.Next() {
		var dish domain.PopularDish
		if err := rows.Scan(
			&dish.ID,
			&dish.Name,
			&dish.Category,
			&dish.Image,
			&dish.AvgRating,
			&dish.RatingCount,
		); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}
