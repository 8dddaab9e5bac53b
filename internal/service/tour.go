package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/geo"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
	"github.com/trailheadapp/trailhead-server/internal/search"
	"github.com/trailheadapp/trailhead-server/internal/slug"
	"github.com/trailheadapp/trailhead-server/internal/store"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// TourService owns tours: CRUD, aggregations, geo queries, full-text search,
// and photo attachment.
type TourService struct {
	*CRUD[domain.Tour, *domain.Tour]
	tours     *sqlite.TourRepo
	index     *search.Index
	storage   *images.Storage
	processor *images.Processor
	logger    *slog.Logger
}

// NewTourService creates the tour service and registers its write hooks:
// slugs are recomputed before every save, and the search index tracks every
// persisted write and delete.
func NewTourService(
	tours *sqlite.TourRepo,
	index *search.Index,
	storage *images.Storage,
	processor *images.Processor,
	validate *validation.Validator,
	logger *slog.Logger,
) *TourService {
	s := &TourService{
		tours:     tours,
		index:     index,
		storage:   storage,
		processor: processor,
		logger:    logger,
	}

	s.CRUD = NewCRUD[domain.Tour, *domain.Tour](tours, validate, logger, id.PrefixTour, "tour", Hooks[domain.Tour]{
		BeforeSave: func(_ context.Context, tour *domain.Tour) error {
			tour.Slug = slug.Make(tour.Name)
			if tour.RatingsQuantity == 0 && tour.RatingsAverage == 0 {
				tour.RatingsAverage = domain.DefaultRatingsAverage
			}
			return nil
		},
		AfterWrite: func(_ context.Context, tour *domain.Tour) {
			// Secret tours stay out of search the same way they stay out of
			// listings.
			var err error
			if tour.Secret {
				err = index.DeleteTour(tour.ID)
			} else {
				err = index.IndexTour(tour)
			}
			if err != nil {
				logger.Warn("failed to update search index", "tour_id", tour.ID, "error", err)
			}
		},
		AfterDelete: func(_ context.Context, tourID string) {
			if err := index.DeleteTour(tourID); err != nil {
				logger.Warn("failed to remove tour from search index", "tour_id", tourID, "error", err)
			}
		},
	})

	return s
}

// GetBySlug fetches a tour by its URL slug, for the rendered tour page.
func (s *TourService) GetBySlug(ctx context.Context, tourSlug string) (*domain.Tour, error) {
	tour, err := s.tours.GetBySlug(ctx, tourSlug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("There is no tour with that name.")
		}
		return nil, fmt.Errorf("get tour by slug: %w", err)
	}
	return tour, nil
}

// ListVisible returns every non-secret tour, used by the rendered overview
// page which shows the whole catalog rather than one page of it.
func (s *TourService) ListVisible(ctx context.Context) ([]*domain.Tour, error) {
	tours, err := s.tours.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return tours, nil
}

// Stats returns the per-difficulty aggregate over well-rated tours.
func (s *TourService) Stats(ctx context.Context) ([]domain.TourStats, error) {
	stats, err := s.tours.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	return stats, nil
}

// MonthlyPlan returns the busiest months of the given year, counting tour
// starts.
func (s *TourService) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	if year < 1000 || year > 9999 {
		return nil, errors.Validationf("Invalid year: %d", year)
	}
	plan, err := s.tours.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	return plan, nil
}

// ToursWithin returns the tours whose start location lies inside the circle
// of the given radius around (lat, lng).
func (s *TourService) ToursWithin(ctx context.Context, lat, lng, distance float64, unit geo.Unit) ([]*domain.Tour, error) {
	if !unit.Valid() {
		return nil, errors.Validation("Unit must be mi or km")
	}
	if distance <= 0 {
		return nil, errors.Validation("Distance must be greater than zero")
	}

	tours, err := s.tours.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}

	within := make([]*domain.Tour, 0)
	for _, tour := range tours {
		if tour.StartLocation.IsZero() {
			continue
		}
		if geo.WithinRadius(lat, lng, tour.StartLocation.Lat(), tour.StartLocation.Lng(), distance, unit) {
			within = append(within, tour)
		}
	}
	return within, nil
}

// Distances returns every tour paired with its distance from (lat, lng),
// nearest first.
func (s *TourService) Distances(ctx context.Context, lat, lng float64, unit geo.Unit) ([]domain.TourDistance, error) {
	if !unit.Valid() {
		return nil, errors.Validation("Unit must be mi or km")
	}

	tours, err := s.tours.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}

	distances := make([]domain.TourDistance, 0, len(tours))
	for _, tour := range tours {
		if tour.StartLocation.IsZero() {
			continue
		}
		meters := geo.HaversineMeters(lat, lng, tour.StartLocation.Lat(), tour.StartLocation.Lng())
		distances = append(distances, domain.TourDistance{
			ID:       tour.ID,
			Name:     tour.Name,
			Distance: unit.FromMeters(meters),
		})
	}

	sort.Slice(distances, func(i, j int) bool {
		return distances[i].Distance < distances[j].Distance
	})
	return distances, nil
}

// Search runs a full-text query over the tour index.
func (s *TourService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search tours: %w", err)
	}
	return result, nil
}

// RebuildSearchIndex reindexes every non-secret tour, run at boot so the
// index never drifts from the database.
func (s *TourService) RebuildSearchIndex(ctx context.Context) error {
	tours, err := s.tours.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list tours: %w", err)
	}
	if err := s.index.Rebuild(tours); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

// AttachImages processes and stores uploaded tour photos, then records their
// filenames on the tour. A cover upload also refreshes the BlurHash
// placeholder. Either argument may be empty.
func (s *TourService) AttachImages(ctx context.Context, tourID string, cover []byte, gallery [][]byte) (*domain.Tour, error) {
	tour, err := s.Get(ctx, tourID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if len(cover) > 0 {
		processed, err := s.processor.ProcessTourImage(cover)
		if err != nil {
			return nil, err
		}
		filename := images.TourCoverFilename(tour.ID, now)
		if err := s.storage.Save(filename, processed); err != nil {
			return nil, fmt.Errorf("save cover image: %w", err)
		}
		tour.ImageCover = filename

		if hash, err := images.ComputeBlurHash(processed); err != nil {
			s.logger.Warn("failed to compute blurhash", "tour_id", tour.ID, "error", err)
		} else {
			tour.ImageBlurHash = hash
		}
	}

	if len(gallery) > 0 {
		names := make([]string, 0, len(gallery))
		for i, data := range gallery {
			processed, err := s.processor.ProcessTourImage(data)
			if err != nil {
				return nil, err
			}
			filename := images.TourImageFilename(tour.ID, now, i)
			if err := s.storage.Save(filename, processed); err != nil {
				return nil, fmt.Errorf("save gallery image: %w", err)
			}
			names = append(names, filename)
		}
		tour.Images = names
	}

	tour.Touch()
	if err := s.tours.Update(ctx, tour); err != nil {
		return nil, s.mapStoreError(err, tourID)
	}

	s.logger.Info("attached tour images", "tour_id", tour.ID, "cover", len(cover) > 0, "gallery", len(gallery))
	return tour, nil
}
