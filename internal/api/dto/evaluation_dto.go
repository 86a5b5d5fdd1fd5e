package dto

// EvaluationItem is one rating inside a submission batch.
type EvaluationItem struct {
	DishID    int64   `json:"dishId"`
	CompanyID int64   `json:"companyId"`
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment"`
	UserID    string  `json:"userId"`
}

// SubmitEvaluationsRequest is the body of POST /evaluations.
type SubmitEvaluationsRequest struct {
	Evaluations []EvaluationItem `json:"evaluations"`
}

// SubmitResults lists the dish ids that were inserted and those skipped as
// duplicates.
type SubmitResults struct {
	Success    []int64 `json:"success"`
	Duplicates []int64 `json:"duplicates"`
}

// SubmitEvaluationsResponse is the response of POST /evaluations.
type SubmitEvaluationsResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results SubmitResults `json:"results"`
}

// UserEvaluationResponse is one evaluation in a user's history, with the
// evaluation date formatted YYYY-MM-DD.
type UserEvaluationResponse struct {
	ID        int64   `json:"id"`
	DishID    int64   `json:"dishId"`
	DishName  string  `json:"dishName"`
	CompanyID int64   `json:"companyId"`
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment"`
	Date      string  `json:"date"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

// UserEvaluationsPageResponse is the paginated payload of GET /evaluations/user.
type UserEvaluationsPageResponse struct {
	Data       []UserEvaluationResponse `json:"data"`
	Pagination Pagination               `json:"pagination"`
}

// DeleteEvaluationRequest is the body of POST /evaluations/delete.
type DeleteEvaluationRequest struct {
	ID     int64  `json:"id"`
	UserID string `json:"userId"`
}
