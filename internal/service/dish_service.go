package service

import (
	"context"
	"time"

	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/repository"
)

// DefaultDishImage is substituted for dishes without an image asset.
const DefaultDishImage = "/assets/icons/default.png"

// DishService serves read-only menu composition lookups.
type DishService struct {
	dishes repository.DishRepository
}

// NewDishService constructs the service.
func NewDishService(dishes repository.DishRepository) *DishService {
	return &DishService{dishes: dishes}
}

// ListDishes returns the dishes on a company's menu for a date and meal type.
// A date with no configured menu yields an empty list, not an error.
func (s *DishService) ListDishes(ctx context.Context, companyID int64, date time.Time, meal domain.MealType) ([]domain.MenuDish, error) {
	dishes, err := s.dishes.ListForMenu(ctx, companyID, date, meal)
	if err != nil {
		return nil, err
	}
	for i := range dishes {
		if dishes[i].Image == "" {
			dishes[i].Image = DefaultDishImage
		}
	}
	return dishes, nil
}
