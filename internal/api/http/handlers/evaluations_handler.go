package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/canteen-service/internal/api/dto"
	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/service"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

// EvaluationsHandler serves evaluation submissions and history.
type EvaluationsHandler struct {
	service *service.EvaluationService
}

// NewEvaluationsHandler constructs handler.
func NewEvaluationsHandler(evaluationService *service.EvaluationService) *EvaluationsHandler {
	return &EvaluationsHandler{service: evaluationService}
}

// Submit handles POST /evaluations.
func (h *EvaluationsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitEvaluationsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid evaluations payload", nil)
	}

	items := make([]service.EvaluationInput, 0, len(req.Evaluations))
	for _, item := range req.Evaluations {
		items = append(items, service.EvaluationInput{
			DishID:    item.DishID,
			CompanyID: item.CompanyID,
			Rating:    item.Rating,
			Comment:   item.Comment,
			UserID:    item.UserID,
		})
	}

	outcome, err := h.service.Submit(c.UserContext(), items)
	if err != nil {
		return err
	}

	return c.JSON(dto.SubmitEvaluationsResponse{
		Success: outcome.Success,
		Message: outcome.Message,
		Results: dto.SubmitResults{
			Success:    outcome.Succeeded,
			Duplicates: outcome.Duplicates,
		},
	})
}

// Check handles GET /evaluations/check?dishId&userId.
func (h *EvaluationsHandler) Check(c *fiber.Ctx) error {
	dishID, err := parseID(c.Query("dishId"))
	userID := c.Query("userId")
	if err != nil || userID == "" {
		return apperrors.NewValidationError("dishId and userId are required", nil)
	}

	evaluated, err := h.service.HasEvaluatedToday(c.UserContext(), dishID, userID)
	if err != nil {
		return err
	}

	message := "dish not yet evaluated today"
	if evaluated {
		message = "dish already evaluated today"
	}
	return c.JSON(fiber.Map{
		"hasEvaluated": evaluated,
		"message":      message,
	})
}

// Recent handles GET /evaluations/recent?companyId&userId&limit.
func (h *EvaluationsHandler) Recent(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return apperrors.NewValidationError("userId is required", nil)
	}
	var companyID int64
	if raw := c.Query("companyId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid companyId", nil)
		}
		companyID = id
	}
	limit := parseIntQuery(c.Query("limit"), 0)

	evaluations, err := h.service.ListRecent(c.UserContext(), userID, companyID, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    userEvaluationResponses(evaluations),
	})
}

// ListByUser handles GET /evaluations/user?userId&companyId&startDate&endDate&page&pageSize.
func (h *EvaluationsHandler) ListByUser(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return apperrors.NewValidationError("userId is required", nil)
	}

	filter := service.UserEvaluationFilter{}
	if raw := c.Query("companyId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid companyId", nil)
		}
		filter.CompanyID = id
	}
	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return apperrors.NewValidationError("startDate must be formatted YYYY-MM-DD", nil)
		}
		filter.StartDate = &start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return apperrors.NewValidationError("endDate must be formatted YYYY-MM-DD", nil)
		}
		filter.EndDate = &end
	}
	page := parseIntQuery(c.Query("page"), 1)
	pageSize := parseIntQuery(c.Query("pageSize"), 10)

	result, err := h.service.ListUserEvaluations(c.UserContext(), userID, filter, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": dto.UserEvaluationsPageResponse{
			Data: userEvaluationResponses(result.Items),
			Pagination: dto.Pagination{
				Total:      result.Total,
				Page:       result.Page,
				PageSize:   result.PageSize,
				TotalPages: result.TotalPages,
			},
		},
	})
}

// Delete handles POST /evaluations/delete.
func (h *EvaluationsHandler) Delete(c *fiber.Ctx) error {
	var req dto.DeleteEvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid delete payload", nil)
	}
	if req.ID <= 0 || req.UserID == "" {
		return apperrors.NewValidationError("id and userId are required", nil)
	}

	if err := h.service.Delete(c.UserContext(), req.ID, req.UserID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "evaluation deleted",
	})
}

func userEvaluationResponses(evaluations []domain.UserEvaluation) []dto.UserEvaluationResponse {
	items := make([]dto.UserEvaluationResponse, 0, len(evaluations))
	for _, eval := range evaluations {
		items = append(items, dto.UserEvaluationResponse{
			ID:        eval.ID,
			DishID:    eval.DishID,
			DishName:  eval.DishName,
			CompanyID: eval.CompanyID,
			Rating:    eval.Rating,
			Comment:   eval.Comment,
			Date:      eval.Date.Format(dateLayout),
		})
	}
	return items
}
