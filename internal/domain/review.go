package domain

// Review is one user's rating of one tour. The store enforces at most one
// review per (tour, user) pair.
type Review struct {
	Entity
	TourID string  `json:"tour_id" validate:"required"`
	UserID string  `json:"user_id" validate:"required"`
	Rating float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Text   string  `json:"review" validate:"required"`
	// Author carries the review author's public profile on reads. Never persisted.
	Author *ReviewAuthor `json:"user,omitempty"`
}

// ReviewAuthor is the slice of the user profile shown next to a review.
type ReviewAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}
