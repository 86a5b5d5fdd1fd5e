package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/canteen-service/internal/domain"
	"github.com/spec-kit/canteen-service/internal/repository"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

type dishAggregate struct {
	rating float64
	count  int64
}

// fakeEvaluationRepo is an in-memory stand-in for the evaluation store. WithTx
// snapshots state before running the callback and restores it on error, so
// transactional rollback semantics hold.
type fakeEvaluationRepo struct {
	evals      []domain.Evaluation
	nextID     int64
	aggregates map[int64]dishAggregate
	dishNames  map[int64]string
	insertErr  map[int64]error
}

func newFakeEvaluationRepo() *fakeEvaluationRepo {
	return &fakeEvaluationRepo{
		aggregates: map[int64]dishAggregate{},
		dishNames:  map[int64]string{},
		insertErr:  map[int64]error{},
	}
}

func (f *fakeEvaluationRepo) WithTx(ctx context.Context, fn func(tx repository.EvaluationTx) error) error {
	evalsBackup := append([]domain.Evaluation(nil), f.evals...)
	aggBackup := map[int64]dishAggregate{}
	for k, v := range f.aggregates {
		aggBackup[k] = v
	}
	idBackup := f.nextID

	if err := fn(&fakeEvaluationTx{repo: f}); err != nil {
		f.evals = evalsBackup
		f.aggregates = aggBackup
		f.nextID = idBackup
		return err
	}
	return nil
}

func (f *fakeEvaluationRepo) HasEvaluated(ctx context.Context, dishID int64, userID string, day time.Time) (bool, error) {
	for _, eval := range f.evals {
		if eval.DishID == dishID && eval.UserID == userID && eval.EvaluationDate.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvaluationRepo) FindOwned(ctx context.Context, id int64, userID string) (*domain.Evaluation, error) {
	for _, eval := range f.evals {
		if eval.ID == id && eval.UserID == userID {
			found := eval
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeEvaluationRepo) ListRecent(ctx context.Context, userID string, companyID int64, limit int) ([]domain.UserEvaluation, error) {
	matched := f.matching(repository.UserEvaluationQuery{UserID: userID, CompanyID: companyID})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeEvaluationRepo) CountByUser(ctx context.Context, q repository.UserEvaluationQuery) (int64, error) {
	return int64(len(f.matching(q))), nil
}

func (f *fakeEvaluationRepo) ListByUser(ctx context.Context, q repository.UserEvaluationQuery, limit, offset int) ([]domain.UserEvaluation, error) {
	matched := f.matching(q)
	if offset >= len(matched) {
		return []domain.UserEvaluation{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// matching filters and orders by evaluation_date desc, id desc.
func (f *fakeEvaluationRepo) matching(q repository.UserEvaluationQuery) []domain.UserEvaluation {
	result := []domain.UserEvaluation{}
	for _, eval := range f.evals {
		if eval.UserID != q.UserID {
			continue
		}
		if q.CompanyID > 0 && eval.CompanyID != q.CompanyID {
			continue
		}
		if q.StartDate != nil && eval.EvaluationDate.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && eval.EvaluationDate.After(*q.EndDate) {
			continue
		}
		result = append(result, domain.UserEvaluation{
			ID:        eval.ID,
			DishID:    eval.DishID,
			DishName:  f.dishNames[eval.DishID],
			CompanyID: eval.CompanyID,
			Rating:    eval.Rating,
			Comment:   eval.Comment,
			Date:      eval.EvaluationDate,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

type fakeEvaluationTx struct {
	repo *fakeEvaluationRepo
}

func (t *fakeEvaluationTx) Insert(ctx context.Context, eval *domain.Evaluation) error {
	if err := t.repo.insertErr[eval.DishID]; err != nil {
		return err
	}
	for _, existing := range t.repo.evals {
		if existing.DishID == eval.DishID && existing.UserID == eval.UserID && existing.EvaluationDate.Equal(eval.EvaluationDate) {
			return domain.ErrDuplicateEvaluation
		}
	}
	t.repo.nextID++
	eval.ID = t.repo.nextID
	t.repo.evals = append(t.repo.evals, *eval)
	return nil
}

func (t *fakeEvaluationTx) Delete(ctx context.Context, id int64) error {
	for i, eval := range t.repo.evals {
		if eval.ID == id {
			t.repo.evals = append(t.repo.evals[:i], t.repo.evals[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (t *fakeEvaluationTx) RecomputeDishAggregates(ctx context.Context, dishID int64) error {
	var sum float64
	var count int64
	for _, eval := range t.repo.evals {
		if eval.DishID == dishID {
			sum += eval.Rating
			count++
		}
	}
	agg := dishAggregate{}
	if count > 0 {
		agg = dishAggregate{rating: sum / float64(count), count: count}
	}
	t.repo.aggregates[dishID] = agg
	return nil
}

func newTestEvaluationService(repo *fakeEvaluationRepo, now time.Time) *EvaluationService {
	svc := NewEvaluationService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSubmitFirstEvaluation(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))

	outcome, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 5, CompanyID: 1, Rating: 4, UserID: "u1"},
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !outcome.Success {
		t.Errorf("expected success, got %+v", outcome)
	}
	if len(outcome.Succeeded) != 1 || outcome.Succeeded[0] != 5 {
		t.Errorf("expected dish 5 under success, got %v", outcome.Succeeded)
	}
	if len(outcome.Duplicates) != 0 {
		t.Errorf("expected no duplicates, got %v", outcome.Duplicates)
	}

	agg := repo.aggregates[5]
	if agg.rating != 4.0 || agg.count != 1 {
		t.Errorf("expected rating=4.0 count=1, got rating=%v count=%v", agg.rating, agg.count)
	}
}

func TestSubmitDuplicateLeavesAggregatesUnchanged(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))

	if _, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 5, CompanyID: 1, Rating: 4, UserID: "u1"},
	}); err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}

	outcome, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 5, CompanyID: 1, Rating: 2, UserID: "u1"},
	})
	if err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}
	if outcome.Success {
		t.Errorf("expected success=false for all-duplicates outcome")
	}
	if len(outcome.Duplicates) != 1 || outcome.Duplicates[0] != 5 {
		t.Errorf("expected dish 5 under duplicates, got %v", outcome.Duplicates)
	}

	agg := repo.aggregates[5]
	if agg.rating != 4.0 || agg.count != 1 {
		t.Errorf("duplicate altered aggregates: rating=%v count=%v", agg.rating, agg.count)
	}
}

func TestSubmitMixedBatchCommitsNonDuplicates(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))

	// dish 2 evaluated earlier the same day
	if _, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 2, CompanyID: 1, Rating: 3, UserID: "u1"},
	}); err != nil {
		t.Fatalf("seed Submit returned error: %v", err)
	}

	outcome, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 1, CompanyID: 1, Rating: 5, UserID: "u1"},
		{DishID: 2, CompanyID: 1, Rating: 4, UserID: "u1"},
		{DishID: 3, CompanyID: 1, Rating: 3, UserID: "u1"},
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !outcome.Success {
		t.Errorf("expected success=true for mixed outcome")
	}
	if len(outcome.Succeeded) != 2 || outcome.Succeeded[0] != 1 || outcome.Succeeded[1] != 3 {
		t.Errorf("expected dishes 1 and 3 under success, got %v", outcome.Succeeded)
	}
	if len(outcome.Duplicates) != 1 || outcome.Duplicates[0] != 2 {
		t.Errorf("expected dish 2 under duplicates, got %v", outcome.Duplicates)
	}
	if agg := repo.aggregates[1]; agg.count != 1 || agg.rating != 5 {
		t.Errorf("dish 1 aggregates not committed: %+v", agg)
	}
	if agg := repo.aggregates[3]; agg.count != 1 || agg.rating != 3 {
		t.Errorf("dish 3 aggregates not committed: %+v", agg)
	}
}

func TestSubmitRollsBackOnUnexpectedError(t *testing.T) {
	repo := newFakeEvaluationRepo()
	repo.insertErr[3] = errors.New("connection reset")
	svc := newTestEvaluationService(repo, day("2024-05-20"))

	_, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 1, CompanyID: 1, Rating: 5, UserID: "u1"},
		{DishID: 3, CompanyID: 1, Rating: 4, UserID: "u1"},
	})
	if err == nil {
		t.Fatal("expected error from failing insert")
	}
	if len(repo.evals) != 0 {
		t.Errorf("expected rollback to discard all inserts, found %d rows", len(repo.evals))
	}
	if agg := repo.aggregates[1]; agg.count != 0 {
		t.Errorf("expected rollback to discard aggregates, got %+v", agg)
	}
}

func TestSubmitValidation(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))

	tests := []struct {
		name  string
		items []EvaluationInput
	}{
		{name: "empty batch", items: nil},
		{name: "missing dish", items: []EvaluationInput{{CompanyID: 1, Rating: 4, UserID: "u1"}}},
		{name: "missing company", items: []EvaluationInput{{DishID: 1, Rating: 4, UserID: "u1"}}},
		{name: "missing user", items: []EvaluationInput{{DishID: 1, CompanyID: 1, Rating: 4}}},
		{name: "rating too low", items: []EvaluationInput{{DishID: 1, CompanyID: 1, Rating: 0.5, UserID: "u1"}}},
		{name: "rating too high", items: []EvaluationInput{{DishID: 1, CompanyID: 1, Rating: 6, UserID: "u1"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.items)
			var domainErr *apperrors.DomainError
			if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 400 {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestHasEvaluatedTodayIgnoresOtherDays(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svcYesterday := newTestEvaluationService(repo, day("2024-05-19"))
	if _, err := svcYesterday.Submit(context.Background(), []EvaluationInput{
		{DishID: 7, CompanyID: 1, Rating: 4, UserID: "u1"},
	}); err != nil {
		t.Fatalf("seed Submit returned error: %v", err)
	}

	svcToday := newTestEvaluationService(repo, day("2024-05-20"))
	evaluated, err := svcToday.HasEvaluatedToday(context.Background(), 7, "u1")
	if err != nil {
		t.Fatalf("HasEvaluatedToday returned error: %v", err)
	}
	if evaluated {
		t.Error("yesterday's evaluation should not count as today's")
	}
}

func TestListUserEvaluationsPagination(t *testing.T) {
	repo := newFakeEvaluationRepo()

	// 25 evaluations across consecutive days, newest carries the highest id
	for i := 0; i < 25; i++ {
		svc := newTestEvaluationService(repo, day("2024-05-01").AddDate(0, 0, i))
		if _, err := svc.Submit(context.Background(), []EvaluationInput{
			{DishID: int64(i + 1), CompanyID: 1, Rating: 4, UserID: "u1"},
		}); err != nil {
			t.Fatalf("seed Submit %d returned error: %v", i, err)
		}
	}

	svc := newTestEvaluationService(repo, day("2024-05-26"))
	page, err := svc.ListUserEvaluations(context.Background(), "u1", UserEvaluationFilter{}, 2, 10)
	if err != nil {
		t.Fatalf("ListUserEvaluations returned error: %v", err)
	}
	if page.Total != 25 {
		t.Errorf("expected total 25, got %d", page.Total)
	}
	if page.TotalPages != 3 {
		t.Errorf("expected totalPages 3, got %d", page.TotalPages)
	}
	if len(page.Items) != 10 {
		t.Fatalf("expected 10 items on page 2, got %d", len(page.Items))
	}
	// newest first: page 2 holds items 11..20 counting back from the newest
	for i, item := range page.Items {
		wantID := int64(25 - 10 - i)
		if item.ID != wantID {
			t.Errorf("item %d: expected id %d, got %d", i, wantID, item.ID)
		}
	}
}

func TestListUserEvaluationsDateFilter(t *testing.T) {
	repo := newFakeEvaluationRepo()
	for i := 0; i < 10; i++ {
		svc := newTestEvaluationService(repo, day("2024-05-01").AddDate(0, 0, i))
		if _, err := svc.Submit(context.Background(), []EvaluationInput{
			{DishID: int64(i + 1), CompanyID: 1, Rating: 4, UserID: "u1"},
		}); err != nil {
			t.Fatalf("seed Submit returned error: %v", err)
		}
	}

	start := day("2024-05-03")
	end := day("2024-05-05")
	svc := newTestEvaluationService(repo, day("2024-05-11"))
	page, err := svc.ListUserEvaluations(context.Background(), "u1", UserEvaluationFilter{StartDate: &start, EndDate: &end}, 1, 10)
	if err != nil {
		t.Fatalf("ListUserEvaluations returned error: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("expected 3 evaluations in range, got %d", page.Total)
	}
	for _, item := range page.Items {
		if item.Date.Before(start) || item.Date.After(end) {
			t.Errorf("item dated %v outside inclusive range", item.Date)
		}
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))
	if _, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 5, CompanyID: 1, Rating: 4, UserID: "u1"},
	}); err != nil {
		t.Fatalf("seed Submit returned error: %v", err)
	}

	err := svc.Delete(context.Background(), repo.evals[0].ID, "someone-else")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != 403 {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if len(repo.evals) != 1 {
		t.Error("evaluation must remain after failed ownership check")
	}
	if agg := repo.aggregates[5]; agg.count != 1 {
		t.Errorf("aggregates must remain unchanged, got %+v", agg)
	}
}

func TestDeleteRecomputesAggregates(t *testing.T) {
	repo := newFakeEvaluationRepo()
	svc := newTestEvaluationService(repo, day("2024-05-20"))
	if _, err := svc.Submit(context.Background(), []EvaluationInput{
		{DishID: 5, CompanyID: 1, Rating: 4, UserID: "u1"},
		{DishID: 5, CompanyID: 1, Rating: 2, UserID: "u2"},
	}); err != nil {
		t.Fatalf("seed Submit returned error: %v", err)
	}
	if agg := repo.aggregates[5]; agg.rating != 3.0 || agg.count != 2 {
		t.Fatalf("unexpected seed aggregates: %+v", agg)
	}

	var target int64
	for _, eval := range repo.evals {
		if eval.UserID == "u2" {
			target = eval.ID
		}
	}
	if err := svc.Delete(context.Background(), target, "u2"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	agg := repo.aggregates[5]
	if agg.rating != 4.0 || agg.count != 1 {
		t.Errorf("expected rating=4.0 count=1 after delete, got rating=%v count=%v", agg.rating, agg.count)
	}
}

func TestListRecentDefaultsLimit(t *testing.T) {
	repo := newFakeEvaluationRepo()
	for i := 0; i < 8; i++ {
		repo.dishNames[int64(i+1)] = fmt.Sprintf("dish-%d", i+1)
		svc := newTestEvaluationService(repo, day("2024-05-01").AddDate(0, 0, i))
		if _, err := svc.Submit(context.Background(), []EvaluationInput{
			{DishID: int64(i + 1), CompanyID: 1, Rating: 4, UserID: "u1"},
		}); err != nil {
			t.Fatalf("seed Submit returned error: %v", err)
		}
	}

	svc := newTestEvaluationService(repo, day("2024-05-09"))
	recent, err := svc.ListRecent(context.Background(), "u1", 0, 0)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected default limit of 5, got %d", len(recent))
	}
	if recent[0].DishName != "dish-8" {
		t.Errorf("expected newest evaluation first, got %q", recent[0].DishName)
	}
}
