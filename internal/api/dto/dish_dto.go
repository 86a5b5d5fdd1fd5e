package dto

// DishResponse is one dish on the menu listing.
type DishResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"ratingCount"`
}
