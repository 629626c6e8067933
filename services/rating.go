package services

import (
	"github.com/shopspring/decimal"
	"github.com/tablefire/ordering-api/models"
)

// RecomputeRating derives the rating aggregate from reviews: the mean rounded
// half-up to one decimal, and 0 when there are none.
func RecomputeRating(reviews []models.Review) models.MenuRating {
	if len(reviews) == 0 {
		return models.MenuRating{}
	}

	sum := decimal.Zero
	for _, r := range reviews {
		sum = sum.Add(decimal.NewFromInt(int64(r.Rating)))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(reviews))))

	return models.MenuRating{
		Average: mean.Round(1).InexactFloat64(),
		Count:   len(reviews),
	}
}
