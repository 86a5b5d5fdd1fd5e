package dto

// EvaluationStatsResponse is the payload of GET /statistics/evaluation.
type EvaluationStatsResponse struct {
	TotalEvaluations int64  `json:"totalEvaluations"`
	AverageRating    string `json:"averageRating"`
}

// PopularDishResponse is one entry in the popularity rankings. The average
// rating is formatted to one decimal place.
type PopularDishResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	AvgRating   string `json:"avgRating"`
	RatingCount int64  `json:"ratingCount"`
}
