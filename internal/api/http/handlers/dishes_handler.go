package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/canteen-service/internal/api/dto"
	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/service"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

const dateLayout = "2006-01-02"

// DishesHandler serves menu composition lookups.
type DishesHandler struct {
	service *service.DishService
}

// NewDishesHandler constructs handler.
func NewDishesHandler(dishService *service.DishService) *DishesHandler {
	return &DishesHandler{service: dishService}
}

// List handles GET /dishes?companyId&date&mealType.
func (h *DishesHandler) List(c *fiber.Ctx) error {
	companyID, err := parseID(c.Query("companyId"))
	if err != nil || c.Query("date") == "" {
		return apperrors.NewValidationError("companyId and date are required", nil)
	}
	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		return apperrors.NewValidationError("date must be formatted YYYY-MM-DD", nil)
	}
	meal, err := domain.ParseMealType(c.Query("mealType"))
	if err != nil {
		return apperrors.NewValidationError("mealType must be breakfast or lunch", nil)
	}

	dishes, err := h.service.ListDishes(c.UserContext(), companyID, date, meal)
	if err != nil {
		return err
	}

	items := make([]dto.DishResponse, 0, len(dishes))
	for _, dish := range dishes {
		items = append(items, dto.DishResponse{
			ID:          dish.ID,
			Name:        dish.Name,
			Category:    dish.Category,
			Image:       dish.Image,
			Rating:      dish.Rating,
			RatingCount: dish.RatingCount,
		})
	}
	return c.JSON(items)
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func parseIntQuery(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
