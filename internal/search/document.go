package search

import (
	"github.com/trailheadapp/trailhead-server/internal/domain"
)

// TourDocument is the flattened, indexable projection of a tour.
type TourDocument struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Summary        string  `json:"summary"`
	Description    string  `json:"description"`
	Difficulty     string  `json:"difficulty"`
	Duration       float64 `json:"duration"`
	Price          float64 `json:"price"`
	RatingsAverage float64 `json:"ratings_average"`
}

// NewTourDocument builds a search document from a tour.
func NewTourDocument(tour *domain.Tour) *TourDocument {
	return &TourDocument{
		ID:             tour.ID,
		Name:           tour.Name,
		Slug:           tour.Slug,
		Summary:        tour.Summary,
		Description:    tour.Description,
		Difficulty:     string(tour.Difficulty),
		Duration:       float64(tour.Duration),
		Price:          tour.Price,
		RatingsAverage: tour.RatingsAverage,
	}
}

// ToMap converts the document to a map with lowercase field names
// matching the index mapping.
func (d *TourDocument) ToMap() map[string]any {
	return map[string]any{
		"id":              d.ID,
		"name":            d.Name,
		"slug":            d.Slug,
		"summary":         d.Summary,
		"description":     d.Description,
		"difficulty":      d.Difficulty,
		"duration":        d.Duration,
		"price":           d.Price,
		"ratings_average": d.RatingsAverage,
	}
}
