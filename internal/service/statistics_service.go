package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/repository"
)

const defaultHistoryLimit = 5

// StatisticsService serves read-only aggregate queries. Totals are computed
// live against the store on every call.
type StatisticsService struct {
	stats repository.StatisticsRepository
	now   func() time.Time
}

// NewStatisticsService constructs the service.
func NewStatisticsService(stats repository.StatisticsRepository) *StatisticsService {
	return &StatisticsService{stats: stats, now: time.Now}
}

// GlobalStats returns the company's total evaluation count and mean rating
// formatted to one decimal place, "0.0" when no evaluations exist.
func (s *StatisticsService) GlobalStats(ctx context.Context, companyID int64) (*domain.EvaluationStats, error) {
	total, avg, err := s.stats.CompanyTotals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	stats := &domain.EvaluationStats{TotalEvaluations: total, AverageRating: "0.0"}
	if avg != nil {
		stats.AverageRating = fmt.Sprintf("%.1f", *avg)
	}
	return stats, nil
}

// PopularToday returns the dish with the highest mean rating among today's
// evaluations, ties broken by evaluation count. Nil means no data for today.
func (s *StatisticsService) PopularToday(ctx context.Context, companyID int64) (*domain.PopularDish, error) {
	dish, err := s.stats.PopularToday(ctx, companyID, domain.Day(s.now()))
	if err != nil {
		return nil, err
	}
	if dish != nil && dish.Image == "" {
		dish.Image = DefaultDishImage
	}
	return dish, nil
}

// PopularHistory returns the all-time top dishes by persisted rating, then
// rating count, restricted to dishes with at least one evaluation.
func (s *StatisticsService) PopularHistory(ctx context.Context, companyID int64, limit int) ([]domain.PopularDish, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	dishes, err := s.stats.PopularHistory(ctx, companyID, limit)
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
