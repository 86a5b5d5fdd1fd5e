package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/canteen-service/internal/api/dto"
	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/service"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

// StatisticsHandler serves popularity and totals queries.
type StatisticsHandler struct {
	service *service.StatisticsService
}

// NewStatisticsHandler constructs handler.
func NewStatisticsHandler(statisticsService *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: statisticsService}
}

// Evaluation handles GET /statistics/evaluation?companyId.
func (h *StatisticsHandler) Evaluation(c *fiber.Ctx) error {
	companyID, err := parseID(c.Query("companyId"))
	if err != nil {
		return apperrors.NewValidationError("companyId is required", nil)
	}

	stats, err := h.service.GlobalStats(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(dto.EvaluationStatsResponse{
		TotalEvaluations: stats.TotalEvaluations,
		AverageRating:    stats.AverageRating,
	})
}

// PopularToday handles GET /statistics/popular/today?companyId.
func (h *StatisticsHandler) PopularToday(c *fiber.Ctx) error {
	companyID, err := parseID(c.Query("companyId"))
	if err != nil {
		return apperrors.NewValidationError("companyId is required", nil)
	}

	dish, err := h.service.PopularToday(c.UserContext(), companyID)
	if err != nil {
		return err
	}
	if dish == nil {
		return c.JSON(fiber.Map{"message": "no evaluation data for today yet"})
	}
	return c.JSON(popularDishResponse(*dish))
}

// PopularHistory handles GET /statistics/popular/history?companyId&limit.
func (h *StatisticsHandler) PopularHistory(c *fiber.Ctx) error {
	companyID, err := parseID(c.Query("companyId"))
	if err != nil {
		return apperrors.NewValidationError("companyId is required", nil)
	}
	limit := parseIntQuery(c.Query("limit"), 0)

	dishes, err := h.service.PopularHistory(c.UserContext(), companyID, limit)
	if err != nil {
		return err
	}

	items := make([]dto.PopularDishResponse, 0, len(dishes))
	for _, dish := range dishes {
		items = append(items, popularDishResponse(dish))
	}
	return c.JSON(items)
}

func popularDishResponse(dish domain.PopularDish) dto.PopularDishResponse {
	return dto.PopularDishResponse{
		ID:          dish.ID,
		Name:        dish.Name,
		Category:    dish.Category,
		Image:       dish.Image,
		AvgRating:   fmt.Sprintf("%.1f", dish.AvgRating),
		RatingCount: dish.RatingCount,
	}
}
