package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/repository"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

const (
	defaultRecentLimit = 5
	defaultPageSize    = 10
)

// EvaluationInput is one rating in a submission batch.
type EvaluationInput struct {
	DishID    int64
	CompanyID int64
	Rating    float64
	Comment   string
	UserID    string
}

// SubmitOutcome reports per-dish results of a submission batch. Duplicates
// are an expected outcome, not a failure.
type SubmitOutcome struct {
	Success    bool
	Message    string
	Succeeded  []int64
	Duplicates []int64
}

// EvaluationPage is one page of a user's evaluation history.
type EvaluationPage struct {
	Items      []domain.UserEvaluation
	Total      int64
	Page       int
	PageSize   int
	TotalPages int64
}

// UserEvaluationFilter narrows a user's evaluation listing.
type UserEvaluationFilter struct {
	CompanyID int64
	StartDate *time.Time
	EndDate   *time.Time
}

// EvaluationService validates and persists user ratings and maintains the
// per-dish aggregates.
type EvaluationService struct {
	evals repository.EvaluationRepository
	now   func() time.Time
}

// NewEvaluationService constructs the service.
func NewEvaluationService(evals repository.EvaluationRepository) *EvaluationService {
	return &EvaluationService{evals: evals, now: time.Now}
}

// Submit persists a batch of evaluations in a single transaction. Each
// successful insert triggers an aggregate recompute for its dish inside the
// same transaction. A duplicate for (dish, user, day) is recorded and skipped
// without aborting the batch; any other error rolls everything back.
func (s *EvaluationService) Submit(ctx context.Context, items []EvaluationInput) (*SubmitOutcome, error) {
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("evaluations payload must be a non-empty list", nil)
	}
	for i, item := range items {
		if err := validateEvaluation(i, item); err != nil {
			return nil, err
		}
	}

	day := domain.Day(s.now())
	outcome := &SubmitOutcome{Succeeded: []int64{}, Duplicates: []int64{}}

	err := s.evals.WithTx(ctx, func(tx repository.EvaluationTx) error {
		for _, item := range items {
			eval := &domain.Evaluation{
				DishID:         item.DishID,
				CompanyID:      item.CompanyID,
				UserID:         item.UserID,
				Rating:         item.Rating,
				Comment:        item.Comment,
				EvaluationDate: day,
			}
			if err := tx.Insert(ctx, eval); err != nil {
				if errors.Is(err, domain.ErrDuplicateEvaluation) {
					outcome.Duplicates = append(outcome.Duplicates, item.DishID)
					continue
				}
				return err
			}
			if err := tx.RecomputeDishAggregates(ctx, item.DishID); err != nil {
				return err
			}
			outcome.Succeeded = append(outcome.Succeeded, item.DishID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case len(outcome.Succeeded) > 0 && len(outcome.Duplicates) > 0:
		outcome.Success = true
		outcome.Message = "some evaluations were submitted; dishes already evaluated today were skipped"
	case len(outcome.Succeeded) > 0:
		outcome.Success = true
		outcome.Message = "evaluations submitted"
	default:
		outcome.Success = false
		outcome.Message = "all selected dishes were already evaluated today"
	}
	return outcome, nil
}

// HasEvaluatedToday reports whether the user already evaluated the dish on
// the current calendar day.
func (s *EvaluationService) HasEvaluatedToday(ctx context.Context, dishID int64, userID string) (bool, error) {
	return s.evals.HasEvaluated(ctx, dishID, userID, domain.Day(s.now()))
}

// ListRecent returns the user's most recent evaluations, newest first.
func (s *EvaluationService) ListRecent(ctx context.Context, userID string, companyID int64, limit int) ([]domain.UserEvaluation, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.evals.ListRecent(ctx, userID, companyID, limit)
}

// ListUserEvaluations returns a page of the user's evaluation history ordered
// by evaluation date descending, id descending.
func (s *EvaluationService) ListUserEvaluations(ctx context.Context, userID string, filter UserEvaluationFilter, page, pageSize int) (*EvaluationPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	query := repository.UserEvaluationQuery{
		UserID:    userID,
		CompanyID: filter.CompanyID,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	}
	total, err := s.evals.CountByUser(ctx, query)
	if err != nil {
		return nil, err
	}

	items, err := s.evals.ListByUser(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return &EvaluationPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + int64(pageSize) - 1) / int64(pageSize),
	}, nil
}

// Delete removes an evaluation after verifying ownership, recomputing the
// owning dish's aggregates in the same transaction as the delete.
func (s *EvaluationService) Delete(ctx context.Context, id int64, userID string) error {
	eval, err := s.evals.FindOwned(ctx, id, userID)
	if err != nil {
		if isNoRows(err) {
			return apperrors.NewForbidden("not allowed to delete this evaluation")
		}
		return err
	}

	return s.evals.WithTx(ctx, func(tx repository.EvaluationTx) error {
		if err := tx.Delete(ctx, eval.ID); err != nil {
			return err
		}
		return tx.RecomputeDishAggregates(ctx, eval.DishID)
	})
}

func validateEvaluation(index int, item EvaluationInput) error {
	switch {
	case item.DishID <= 0:
		return apperrors.NewValidationError(fmt.Sprintf("evaluation %d: dishId is required", index), nil)
	case item.CompanyID <= 0:
		return apperrors.NewValidationError(fmt.Sprintf("evaluation %d: companyId is required", index), nil)
	case item.UserID == "":
		return apperrors.NewValidationError(fmt.Sprintf("evaluation %d: userId is required", index), nil)
	case item.Rating < 1 || item.Rating > 5:
		return apperrors.NewValidationError(fmt.Sprintf("evaluation %d: rating must be between 1 and 5", index), nil)
	}
	return nil
}
