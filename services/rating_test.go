package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tablefire/ordering-api/models"
)

func TestRecomputeRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		average float64
	}{
		{"no reviews", nil, 0},
		{"single review", []int{4}, 4},
		{"exact mean", []int{5, 4}, 4.5},
		{"rounds down", []int{5, 4, 4}, 4.3},
		{"rounds up", []int{5, 5, 4}, 4.7},
		{"half rounds up", []int{4, 5, 5, 5}, 4.8},
		{"all ones", []int{1, 1, 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]models.Review, 0, len(tt.ratings))
			for i, r := range tt.ratings {
				reviews = append(reviews, models.Review{UserID: uint(i + 1), Rating: r})
			}

			got := RecomputeRating(reviews)

			assert.Equal(t, tt.average, got.Average)
			assert.Equal(t, len(tt.ratings), got.Count)
		})
	}
}
