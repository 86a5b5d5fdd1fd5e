package domain

import (
	"errors"
	"time"
)

// ErrDuplicateEvaluation is returned by the evaluation store when a user has
// already evaluated the same dish on the same calendar day. It is a recognized
// outcome, not a failure.
var ErrDuplicateEvaluation = errors.New("dish already evaluated by this user today")

// Evaluation is a single user rating of a dish, attributed to a calendar day.
type Evaluation struct {
	ID             int64
	DishID         int64
	CompanyID      int64
	UserID         string
	Rating         float64
	Comment        string
	EvaluationDate time.Time
}

// UserEvaluation is an evaluation row joined with the evaluated dish's name,
// as listed back to the owning user.
type UserEvaluation struct {
	ID        int64
	DishID    int64
	DishName  string
	CompanyID int64
	Rating    float64
	Comment   string
	Date      time.Time
}

// EvaluationStats holds company-wide evaluation totals.
type EvaluationStats struct {
	TotalEvaluations int64
	AverageRating    string
}

// Day truncates a time to its calendar day in the same location.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
