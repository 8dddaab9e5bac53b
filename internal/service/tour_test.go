package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/geo"
	"github.com/trailheadapp/trailhead-server/internal/search"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

func TestTourCreate(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	assert.NotEmpty(t, tour.ID)
	assert.Equal(t, "the-forest-hiker", tour.Slug)
	assert.Equal(t, domain.DefaultRatingsAverage, tour.RatingsAverage)
	assert.Equal(t, 1, tour.Version)

	// The write is searchable immediately.
	result, err := svc.Search(context.Background(), search.Params{Query: "forest"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, tour.ID, result.Hits[0].ID)
}

func TestTourCreateInvalid(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	tour.Price = 0
	err := svc.Create(context.Background(), tour)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "price")
}

func TestTourCreateDuplicateName(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	require.NoError(t, svc.Create(context.Background(), validTour("The Forest Hiker")))
	err := svc.Create(context.Background(), validTour("The Forest Hiker"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
}

func TestTourUpdateRecomputesSlugAndIndex(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	updated, err := svc.Update(context.Background(), tour.ID, map[string]any{"name": "The Mountain Biker"})
	require.NoError(t, err)
	assert.Equal(t, "the-mountain-biker", updated.Slug)
	assert.Equal(t, 2, updated.Version)

	result, err := svc.Search(context.Background(), search.Params{Query: "mountain"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, tour.ID, result.Hits[0].ID)

	result, err = svc.Search(context.Background(), search.Params{Query: "forest"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestTourUpdateIgnoresProtectedFields(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	updated, err := svc.Update(context.Background(), tour.ID, map[string]any{
		"id":      "tour-hijacked",
		"version": 99,
		"price":   600,
	})
	require.NoError(t, err)
	assert.Equal(t, tour.ID, updated.ID)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, float64(600), updated.Price)
}

func TestTourUpdateNotFound(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	_, err := svc.Update(context.Background(), "tour-missing", map[string]any{"price": 1})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSecretTourHiddenFromSearch(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Hidden Valley")
	tour.Secret = true
	require.NoError(t, svc.Create(context.Background(), tour))

	result, err := svc.Search(context.Background(), search.Params{Query: "hidden"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	// Listing excludes it too.
	tours, err := svc.List(context.Background(), store.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, tours)
}

func TestTourDeleteRemovesFromIndex(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))
	require.NoError(t, svc.Delete(context.Background(), tour.ID))

	_, err := svc.Get(context.Background(), tour.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	result, err := svc.Search(context.Background(), search.Params{Query: "forest"})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestTourListUnknownFilterField(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	q := store.ListQuery{
		Conditions: []store.Condition{{Field: "evil_column", Op: store.OpEq, Value: "x"}},
		Page:       1,
		Limit:      10,
	}
	_, err := svc.List(context.Background(), q)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestToursWithin(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	aspen := validTour("The Aspen Climber")
	aspen.StartLocation.Coordinates = [2]float64{-106.822318, 39.190872}
	require.NoError(t, svc.Create(context.Background(), aspen))

	miami := validTour("The Miami Diver")
	miami.StartLocation.Coordinates = [2]float64{-80.185942, 25.774772}
	require.NoError(t, svc.Create(context.Background(), miami))

	// 400 miles around Denver reaches Aspen but not Miami.
	within, err := svc.ToursWithin(context.Background(), 39.7392, -104.9903, 400, geo.UnitMiles)
	require.NoError(t, err)
	require.Len(t, within, 1)
	assert.Equal(t, aspen.ID, within[0].ID)
}

func TestToursWithinValidatesInput(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	_, err := svc.ToursWithin(context.Background(), 39.7, -104.9, 100, geo.Unit("furlongs"))
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.ToursWithin(context.Background(), 39.7, -104.9, 0, geo.UnitMiles)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestDistancesSortedNearestFirst(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	aspen := validTour("The Aspen Climber")
	aspen.StartLocation.Coordinates = [2]float64{-106.822318, 39.190872}
	require.NoError(t, svc.Create(context.Background(), aspen))

	miami := validTour("The Miami Diver")
	miami.StartLocation.Coordinates = [2]float64{-80.185942, 25.774772}
	require.NoError(t, svc.Create(context.Background(), miami))

	distances, err := svc.Distances(context.Background(), 39.7392, -104.9903, geo.UnitKilometers)
	require.NoError(t, err)
	require.Len(t, distances, 2)
	assert.Equal(t, aspen.ID, distances[0].ID)
	assert.Less(t, distances[0].Distance, distances[1].Distance)
}

func TestTourGetBySlug(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	got, err := svc.GetBySlug(context.Background(), "the-forest-hiker")
	require.NoError(t, err)
	assert.Equal(t, tour.ID, got.ID)

	_, err = svc.GetBySlug(context.Background(), "no-such-tour")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRebuildSearchIndex(t *testing.T) {
	st := newTestStore(t)
	svc := newTestTourService(t, st)

	require.NoError(t, svc.Create(context.Background(), validTour("The Forest Hiker")))
	require.NoError(t, svc.Create(context.Background(), validTour("The Sea Explorer")))

	require.NoError(t, svc.RebuildSearchIndex(context.Background()))

	result, err := svc.Search(context.Background(), search.Params{Query: "explorer"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestAttachImages(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	cover := makeTestPNG(t, 60, 40)
	gallery := [][]byte{makeTestPNG(t, 50, 50), makeTestPNG(t, 40, 60)}

	updated, err := svc.AttachImages(context.Background(), tour.ID, cover, gallery)
	require.NoError(t, err)
	assert.Contains(t, updated.ImageCover, "-cover.jpeg")
	assert.NotEmpty(t, updated.ImageBlurHash)
	require.Len(t, updated.Images, 2)
	assert.True(t, svc.storage.Exists(updated.ImageCover))
	assert.True(t, svc.storage.Exists(updated.Images[0]))
}

func TestAttachImagesRejectsNonImage(t *testing.T) {
	svc := newTestTourService(t, newTestStore(t))

	tour := validTour("The Forest Hiker")
	require.NoError(t, svc.Create(context.Background(), tour))

	_, err := svc.AttachImages(context.Background(), tour.ID, []byte("not an image"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
