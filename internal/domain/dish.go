package domain

import "fmt"

// MealType enumerates the dayparts a menu item can belong to.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
)

// ParseMealType normalizes a meal type query value. Empty defaults to lunch.
func ParseMealType(value string) (MealType, error) {
	switch MealType(value) {
	case "":
		return MealLunch, nil
	case MealBreakfast:
		return MealBreakfast, nil
	case MealLunch:
		return MealLunch, nil
	default:
		return "", fmt.Errorf("unknown meal type %q", value)
	}
}

// MenuDish is a dish as it appears on a company's menu for a given day,
// joined with its category and a live evaluation count.
type MenuDish struct {
	ID          int64
	Name        string
	Category    string
	Image       string
	Rating      float64
	RatingCount int64
}

// PopularDish is a ranking entry for the popularity statistics.
type PopularDish struct {
	ID          int64
	Name        string
	Category    string
	Image       string
	AvgRating   float64
	RatingCount int64
}
