package domain

import (
	"math"
	"time"
)

// Difficulty grades how demanding a tour is.
type Difficulty string

// Accepted difficulty grades.
const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyDifficult Difficulty = "difficult"
)

// DefaultRatingsAverage is the rating a tour carries before anyone reviews it.
const DefaultRatingsAverage = 4.5

// Tour is a bookable trip with an itinerary, pricing, and aggregate review data.
type Tour struct {
	Entity
	Name            string      `json:"name" validate:"required,min=5,max=40"`
	Slug            string      `json:"slug,omitempty"`
	Duration        int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int         `json:"max_group_size" validate:"required,gt=0"`
	Difficulty      Difficulty  `json:"difficulty" validate:"required,oneof=easy medium hard difficult"`
	Price           float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount   float64     `json:"price_discount,omitempty" validate:"omitempty,gt=0,ltfield=Price"`
	RatingsAverage  float64     `json:"ratings_average"`
	RatingsQuantity int         `json:"ratings_quantity"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"image_cover" validate:"required"`
	Images          []string    `json:"images,omitempty"`
	ImageBlurHash   string      `json:"image_blur_hash,omitempty"`
	StartDates      []time.Time `json:"start_dates,omitempty"`
	// Secret tours are hidden from default listings and aggregations.
	Secret        bool       `json:"secret,omitempty"`
	StartLocation GeoPoint   `json:"start_location"`
	Locations     []GeoPoint `json:"locations,omitempty"`
	// GuideIDs reference the users leading this tour.
	GuideIDs []string `json:"guide_ids,omitempty"`
	// Guides carries the eagerly loaded guide users on reads. Never persisted.
	Guides []*User `json:"guides,omitempty"`
}

// DurationWeeks returns the tour length in weeks.
func (t *Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// SetRatings records a recomputed review aggregate, rounding the average to
// one decimal the way it is displayed.
func (t *Tour) SetRatings(average float64, quantity int) {
	t.RatingsAverage = math.Round(average*10) / 10
	t.RatingsQuantity = quantity
}

// ResetRatings restores the pre-review defaults, used when the last review
// of a tour is deleted.
func (t *Tour) ResetRatings() {
	t.RatingsAverage = DefaultRatingsAverage
	t.RatingsQuantity = 0
}

// TourStats is one row of the per-difficulty aggregate.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"num_tours"`
	NumRatings int     `json:"num_ratings"`
	AvgRating  float64 `json:"avg_rating"`
	AvgPrice   float64 `json:"avg_price"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
}

// MonthlyPlanEntry counts the tours starting in one month of a year.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"num_tour_starts"`
	Tours         []string `json:"tours"`
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
