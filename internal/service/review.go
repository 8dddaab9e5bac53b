package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/store"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// ReviewService owns reviews and keeps each tour's rating aggregate in sync
// with its reviews. Recomputation is synchronous: by the time a review write
// returns, the tour already shows the new average.
type ReviewService struct {
	*CRUD[domain.Review, *domain.Review]
	reviews *sqlite.ReviewRepo
	tours   *sqlite.TourRepo
	logger  *slog.Logger
}

// NewReviewService creates the review service.
func NewReviewService(
	reviews *sqlite.ReviewRepo,
	tours *sqlite.TourRepo,
	validate *validation.Validator,
	logger *slog.Logger,
) *ReviewService {
	s := &ReviewService{
		reviews: reviews,
		tours:   tours,
		logger:  logger,
	}

	s.CRUD = NewCRUD[domain.Review, *domain.Review](reviews, validate, logger, id.PrefixReview, "review", Hooks[domain.Review]{
		AfterWrite: func(ctx context.Context, review *domain.Review) {
			s.recomputeRatings(ctx, review.TourID)
		},
	})

	return s
}

// Create persists a new review after checking its tour exists. One review
// per user per tour.
func (s *ReviewService) Create(ctx context.Context, review *domain.Review) error {
	if _, err := s.tours.Get(ctx, review.TourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFoundf("No tour found with ID %s", review.TourID)
		}
		return fmt.Errorf("get tour: %w", err)
	}

	if err := s.CRUD.Create(ctx, review); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			return errors.Duplicate("You have already reviewed this tour!")
		}
		return err
	}
	return nil
}

// UpdateOwn applies a patch to a review after an ownership check: users may
// only edit their own reviews, admins may edit any.
func (s *ReviewService) UpdateOwn(ctx context.Context, reviewID string, patch map[string]any, actor *domain.User) (*domain.Review, error) {
	if err := s.checkOwnership(ctx, reviewID, actor); err != nil {
		return nil, err
	}
	// The author and tour of a review never change.
	delete(patch, "tour_id")
	delete(patch, "user_id")
	return s.Update(ctx, reviewID, patch)
}

// DeleteOwn removes a review after the same ownership check, then brings the
// tour's aggregate back in line.
func (s *ReviewService) DeleteOwn(ctx context.Context, reviewID string, actor *domain.User) error {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && review.UserID != actor.ID {
		return errors.Forbidden("You can only modify your own reviews")
	}

	if err := s.CRUD.Delete(ctx, reviewID); err != nil {
		return err
	}
	s.recomputeRatings(ctx, review.TourID)
	return nil
}

// ListForTour returns the reviews of one tour.
func (s *ReviewService) ListForTour(ctx context.Context, tourID string, q store.ListQuery) ([]*domain.Review, error) {
	return s.List(ctx, q.WithCondition("tour_id", tourID))
}

func (s *ReviewService) checkOwnership(ctx context.Context, reviewID string, actor *domain.User) error {
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && review.UserID != actor.ID {
		return errors.Forbidden("You can only modify your own reviews")
	}
	return nil
}

// recomputeRatings recalculates a tour's review aggregate from scratch. A
// tour with no reviews goes back to the display default.
func (s *ReviewService) recomputeRatings(ctx context.Context, tourID string) {
	count, average, err := s.reviews.RatingSummary(ctx, tourID)
	if err != nil {
		s.logger.Error("failed to summarize ratings", "tour_id", tourID, "error", err)
		return
	}

	tour, err := s.tours.Get(ctx, tourID)
	if err != nil {
		s.logger.Error("failed to load tour for rating update", "tour_id", tourID, "error", err)
		return
	}

	if count == 0 {
		tour.ResetRatings()
	} else {
		tour.SetRatings(average, count)
	}
	tour.Touch()

	if err := s.tours.Update(ctx, tour); err != nil {
		s.logger.Error("failed to store rating aggregate", "tour_id", tourID, "error", err)
	}
}
