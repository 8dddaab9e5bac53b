package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

// handleCreateReview posts a review. The author is always the logged-in
// user, and on the nested route the tour comes from the URL.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var review domain.Review
	if err := decodeJSON(r, &review); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	if tourID := chi.URLParam(r, "tourID"); tourID != "" {
		review.TourID = tourID
	}
	review.UserID = currentUser(r.Context()).ID

	if err := s.reviews.Create(r.Context(), &review); err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondCreated(w, "review", &review)
}

// handleUpdateReview patches a review, author or admin only.
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	patch := map[string]any{}
	if err := decodeJSON(r, &patch); err != nil {
		s.translator.HandleError(w, err)
		return
	}

	review, err := s.reviews.UpdateOwn(r.Context(), urlID(r), patch, currentUser(r.Context()))
	if err != nil {
		s.translator.HandleError(w, err)
		return
	}
	s.respondOne(w, "review", review, nil)
}

// handleDeleteReview removes a review, author or admin only.
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.DeleteOwn(r.Context(), urlID(r), currentUser(r.Context())); err != nil {
		s.translator.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scopeReviewsToTour pins the nested review listing to its tour.
func scopeReviewsToTour(r *http.Request, q store.ListQuery) store.ListQuery {
	if tourID := chi.URLParam(r, "tourID"); tourID != "" {
		return q.WithCondition("tour_id", tourID)
	}
	return q
}
