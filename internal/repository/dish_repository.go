package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/canteen-service/internal/domain"
)

// DishRepository encapsulates menu composition lookups.
type DishRepository interface {
	ListForMenu(ctx context.Context, companyID int64, date time.Time, meal domain.MealType) ([]domain.MenuDish, error)
}

type dishRepository struct {
	pool *pgxpool.Pool
}

// NewDishRepository instantiates repository.
func NewDishRepository(pool *pgxpool.Pool) DishRepository {
	return &dishRepository{pool: pool}
}

// ListForMenu returns dishes on a company's menu for a date and meal type.
// The evaluation count is counted live rather than read from the cached
// rating_count column.
func (r *dishRepository) ListForMenu(ctx context.Context, companyID int64, date time.Time, meal domain.MealType) ([]domain.MenuDish, error) {
	const query = `
        SELECT d.id, d.name, dc.name AS category, COALESCE(d.image_url, '') AS image, d.rating,
               (SELECT COUNT(*) FROM dish_evaluations WHERE dish_id = d.id) AS rating_count
        FROM dishes d
        JOIN dish_categories dc ON d.category_id = dc.id
        JOIN menu_items mi ON mi.dish_id = d.id
        JOIN daily_menus dm ON mi.daily_menu_id = dm.id
        WHERE d.company_id = $1
          AND dm.menu_date = $2
          AND mi.meal_type = $3`

	rows, err := r.pool.Query(ctx, query, companyID, date, meal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dishes := []domain.MenuDish{}
	for rows.Next() {
		var dish domain.MenuDish
		if err := rows.Scan(
			&dish.ID,
			&dish.Name,
			&dish.Category,
			&dish.Image,
			&dish.Rating,
			&dish.RatingCount,
		); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}
