package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/canteen-service/internal/domain"
)

// UserEvaluationQuery captures listing filters for a user's evaluations.
// StartDate and EndDate are inclusive bounds on evaluation_date.
type UserEvaluationQuery struct {
	UserID    string
	CompanyID int64
	StartDate *time.Time
	EndDate   *time.Time
}

// EvaluationTx exposes the mutations that must share one transaction:
// inserts and deletes together with the owning dish's aggregate recompute.
type EvaluationTx interface {
	Insert(ctx context.Context, eval *domain.Evaluation) error
	Delete(ctx context.Context, id int64) error
	RecomputeDishAggregates(ctx context.Context, dishID int64) error
}

// EvaluationRepository encapsulates evaluation persistence.
type EvaluationRepository interface {
	WithTx(ctx context.Context, fn func(tx EvaluationTx) error) error
	HasEvaluated(ctx context.Context, dishID int64, userID string, day time.Time) (bool, error)
	FindOwned(ctx context.Context, id int64, userID string) (*domain.Evaluation, error)
	ListRecent(ctx context.Context, userID string, companyID int64, limit int) ([]domain.UserEvaluation, error)
	CountByUser(ctx context.Context, q UserEvaluationQuery) (int64, error)
	ListByUser(ctx context.Context, q UserEvaluationQuery, limit, offset int) ([]domain.UserEvaluation, error)
}

type evaluationRepository struct {
	pool *pgxpool.Pool
}

// NewEvaluationRepository instantiates repository.
func NewEvaluationRepository(pool *pgxpool.Pool) EvaluationRepository {
	return &evaluationRepository{pool: pool}
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error. The connection is released on every exit path.
func (r *evaluationRepository) WithTx(ctx context.Context, fn func(tx EvaluationTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&evaluationTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *evaluationRepository) HasEvaluated(ctx context.Context, dishID int64, userID string, day time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM dish_evaluations
            WHERE dish_id = $1 AND user_id = $2 AND evaluation_date = $3
        )`
	var exists bool
	err := r.pool.QueryRow(ctx, query, dishID, userID, day).Scan(&exists)
	return exists, err
}

func (r *evaluationRepository) FindOwned(ctx context.Context, id int64, userID string) (*domain.Evaluation, error) {
	const query = `
        SELECT id, dish_id, company_id, user_id, rating, COALESCE(comment, ''), evaluation_date
        FROM dish_evaluations
        WHERE id = $1 AND user_id = $2`
	var eval domain.Evaluation
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&eval.ID,
		&eval.DishID,
		&eval.CompanyID,
		&eval.UserID,
		&eval.Rating,
		&eval.Comment,
		&eval.EvaluationDate,
	); err != nil {
		return nil, err
	}
	return &eval, nil
}

func (r *evaluationRepository) ListRecent(ctx context.Context, userID string, companyID int64, limit int) ([]domain.UserEvaluation, error) {
	base := `
        SELECT de.id, de.dish_id, d.name, de.company_id, de.rating, COALESCE(de.comment, ''), de.evaluation_date
        FROM dish_evaluations de
        JOIN dishes d ON de.dish_id = d.id
        WHERE de.user_id = $1`
	args := []any{userID}
	if companyID > 0 {
		args = append(args, companyID)
		base += fmt.Sprintf(" AND de.company_id = $%d", len(args))
	}
	args = append(args, limit)
	query := base + fmt.Sprintf(" ORDER BY de.evaluation_date DESC, de.id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserEvaluations(rows)
}

func (r *evaluationRepository) CountByUser(ctx context.Context, q UserEvaluationQuery) (int64, error) {
	where, args := userEvaluationClauses(q)
	query := "SELECT COUNT(*) FROM dish_evaluations de WHERE " + where
	var total int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func (r *evaluationRepository) ListByUser(ctx context.Context, q UserEvaluationQuery, limit, offset int) ([]domain.UserEvaluation, error) {
	where, args := userEvaluationClauses(q)
	query := fmt.Sprintf(`
        SELECT de.id, de.dish_id, d.name, de.company_id, de.rating, COALESCE(de.comment, ''), de.evaluation_date
        FROM dish_evaluations de
        JOIN dishes d ON de.dish_id = d.id
        WHERE %s
        ORDER BY de.evaluation_date DESC, de.id DESC
        LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserEvaluations(rows)
}

func userEvaluationClauses(q UserEvaluationQuery) (string, []any) {
	clauses := []string{"de.user_id = $1"}
	args := []any{q.UserID}
	if q.CompanyID > 0 {
		args = append(args, q.CompanyID)
		clauses = append(clauses, fmt.Sprintf("de.company_id = $%d", len(args)))
	}
	if q.StartDate != nil {
		args = append(args, *q.StartDate)
		clauses = append(clauses, fmt.Sprintf("de.evaluation_date >= $%d", len(args)))
	}
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		clauses = append(clauses, fmt.Sprintf("de.evaluation_date <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanUserEvaluations(rows pgx.Rows) ([]domain.UserEvaluation, error) {
	result := []domain.UserEvaluation{}
	for rows.Next() {
		var eval domain.UserEvaluation
		if err := rows.Scan(
			&eval.ID,
			&eval.DishID,
			&eval.DishName,
			&eval.CompanyID,
			&eval.Rating,
			&eval.Comment,
			&eval.Date,
		); err != nil {
			return nil, err
		}
		result = append(result, eval)
	}
	return result, rows.Err()
}

type evaluationTx struct {
	tx pgx.Tx
}

// Insert persists one evaluation. A (dish, user, day) collision surfaces as
// domain.ErrDuplicateEvaluation instead of a store error, so callers can
// treat it as data and keep the transaction alive.
func (t *evaluationTx) Insert(ctx context.Context, eval *domain.Evaluation) error {
	const query = `
        INSERT INTO dish_evaluations (dish_id, company_id, rating, comment, user_id, evaluation_date)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
        ON CONFLICT (dish_id, user_id, evaluation_date) DO NOTHING
        RETURNING id`
	err := t.tx.QueryRow(ctx, query,
		eval.DishID,
		eval.CompanyID,
		eval.Rating,
		eval.Comment,
		eval.UserID,
		eval.EvaluationDate,
	).Scan(&eval.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDuplicateEvaluation
	}
	return err
}

func (t *evaluationTx) Delete(ctx context.Context, id int64) error {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM dish_evaluations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecomputeDishAggregates recalculates a dish's mean rating and evaluation
// count from the full set of current evaluation rows.
func (t *evaluationTx) RecomputeDishAggregates(ctx context.Context, dishID int64) error {
	const query = `
        UPDATE dishes SET
            rating = COALESCE((SELECT AVG(rating) FROM dish_evaluations WHERE dish_id = $1), 0),
            rating_count = (SELECT COUNT(*) FROM dish_evaluations WHERE dish_id = $1)
        WHERE id = $1`
	_, err := t.tx.Exec(ctx, query, dishID)
	return err
}
