package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

func TestTourInsertGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	guide := makeTestUser(t, s, "Guide One", "guide@example.com")
	tour := makeTestTour(t, s, "The Forest Hiker", 497, func(tr *domain.Tour) {
		tr.GuideIDs = []string{guide.ID}
		tr.Locations = []domain.GeoPoint{
			{Type: "Point", Coordinates: [2]float64{-106.82, 39.19}, Description: "Aspen", Day: 1},
			{Type: "Point", Coordinates: [2]float64{-106.36, 39.60}, Description: "Leadville", Day: 3},
		}
	})

	got, err := s.Tours().Get(ctx, tour.ID)
	if err != nil {
		t.Fatalf("get tour: %v", err)
	}

	if got.Name != "The Forest Hiker" {
		t.Errorf("name: got %q", got.Name)
	}
	if got.Price != 497 {
		t.Errorf("price: got %v", got.Price)
	}
	if len(got.StartDates) != 2 {
		t.Fatalf("start dates: got %d", len(got.StartDates))
	}
	if len(got.Locations) != 2 || got.Locations[1].Description != "Leadville" {
		t.Errorf("locations not loaded in order: %+v", got.Locations)
	}
	if len(got.Guides) != 1 || got.Guides[0].Name != "Guide One" {
		t.Errorf("guides not loaded: %+v", got.Guides)
	}
	if got.Guides[0].PasswordHash != "" {
		t.Error("guide load leaked password hash")
	}
	if got.Version != 1 {
		t.Errorf("version: got %d", got.Version)
	}
}

func TestTourDuplicateName(t *testing.T) {
	s := newTestStore(t)

	makeTestTour(t, s, "The Sea Explorer", 100)
	tour := &domain.Tour{
		Name: "The Sea Explorer", Slug: "other", Duration: 3, MaxGroupSize: 5,
		Difficulty: domain.DifficultyEasy, Price: 50, Summary: "dup", ImageCover: "c.jpg",
	}
	tour.ID = "tour-dup"
	tour.InitTimestamps()

	err := s.Tours().Insert(context.Background(), tour)
	if err != store.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTourGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Tours().Get(context.Background(), "tour-missing")
	if err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTourUpdateBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tour := makeTestTour(t, s, "The City Wanderer", 300)
	tour.Price = 350
	tour.Touch()
	if err := s.Tours().Update(ctx, tour); err != nil {
		t.Fatalf("update: %v", err)
	}
	if tour.Version != 2 {
		t.Errorf("in-memory version: got %d", tour.Version)
	}

	got, err := s.Tours().Get(ctx, tour.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price != 350 || got.Version != 2 {
		t.Errorf("persisted: price %v version %d", got.Price, got.Version)
	}
}

func TestTourListExcludesSecret(t *testing.T) {
	s := newTestStore(t)

	makeTestTour(t, s, "Public Tour", 100)
	makeTestTour(t, s, "Hidden Tour", 200, func(tr *domain.Tour) { tr.Secret = true })

	tours, err := s.Tours().List(context.Background(), store.ListQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 1 || tours[0].Name != "Public Tour" {
		t.Fatalf("expected only the public tour, got %d tours", len(tours))
	}
}

func TestTourListZeroValueQuery(t *testing.T) {
	s := newTestStore(t)

	makeTestTour(t, s, "Default Page Tour", 100)

	// A zero-value query must fall back to the default page size, not LIMIT 0.
	tours, err := s.Tours().List(context.Background(), store.ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 1 || tours[0].Name != "Default Page Tour" {
		t.Fatalf("expected the tour on the default page, got %d tours", len(tours))
	}
}

func TestTourDuplicateStartDates(t *testing.T) {
	s := newTestStore(t)

	when := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	tour := makeTestTour(t, s, "Twice Daily", 100, func(tr *domain.Tour) {
		tr.StartDates = []time.Time{when, when}
	})

	got, err := s.Tours().Get(context.Background(), tour.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.StartDates) != 2 {
		t.Fatalf("expected both identical start dates to persist, got %d", len(got.StartDates))
	}
}

func TestTourListFilterSortPaginate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestTour(t, s, "Cheap Easy", 100, func(tr *domain.Tour) { tr.Difficulty = domain.DifficultyEasy })
	makeTestTour(t, s, "Mid Easy", 300, func(tr *domain.Tour) { tr.Difficulty = domain.DifficultyEasy })
	makeTestTour(t, s, "Pricey Hard", 900, func(tr *domain.Tour) { tr.Difficulty = domain.DifficultyHard })

	q := store.ListQuery{
		Conditions: []store.Condition{
			{Field: "difficulty", Op: store.OpEq, Value: "easy"},
			{Field: "price", Op: store.OpLte, Value: 500.0},
		},
		Sort:  []store.SortKey{{Field: "price", Desc: true}},
		Page:  1,
		Limit: 10,
	}
	tours, err := s.Tours().List(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 2 {
		t.Fatalf("expected 2 tours, got %d", len(tours))
	}
	if tours[0].Name != "Mid Easy" || tours[1].Name != "Cheap Easy" {
		t.Errorf("wrong sort order: %s, %s", tours[0].Name, tours[1].Name)
	}

	// Second page of one-per-page.
	q.Sort = []store.SortKey{{Field: "price"}}
	q.Limit = 1
	q.Page = 2
	tours, err = s.Tours().List(ctx, q)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(tours) != 1 || tours[0].Name != "Mid Easy" {
		t.Errorf("pagination: got %+v", tours)
	}
}

func TestTourListUnknownField(t *testing.T) {
	s := newTestStore(t)

	q := store.ListQuery{
		Conditions: []store.Condition{{Field: "hacker", Op: store.OpEq, Value: "x"}},
		Page:       1, Limit: 10,
	}
	_, err := s.Tours().List(context.Background(), q)
	if !store.IsUnknownField(err) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestTourDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser(t, s, "Reviewer", "rev@example.com")
	tour := makeTestTour(t, s, "Doomed Tour", 100)
	makeTestReview(t, s, tour.ID, user.ID, 5)

	if err := s.Tours().Delete(ctx, tour.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Tours().Delete(ctx, tour.ID); err != store.ErrNotFound {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM reviews WHERE tour_id = ?", tour.ID).Scan(&n); err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	if n != 0 {
		t.Errorf("expected reviews to cascade, found %d", n)
	}
}

func TestTourStats(t *testing.T) {
	s := newTestStore(t)

	makeTestTour(t, s, "Good Easy", 100, func(tr *domain.Tour) {
		tr.Difficulty = domain.DifficultyEasy
		tr.RatingsAverage = 4.8
		tr.RatingsQuantity = 10
	})
	makeTestTour(t, s, "Better Easy", 300, func(tr *domain.Tour) {
		tr.Difficulty = domain.DifficultyEasy
		tr.RatingsAverage = 4.6
		tr.RatingsQuantity = 6
	})
	makeTestTour(t, s, "Weak Hard", 900, func(tr *domain.Tour) {
		tr.Difficulty = domain.DifficultyHard
		tr.RatingsAverage = 3.9 // below threshold, excluded
	})
	makeTestTour(t, s, "Secret Easy", 50, func(tr *domain.Tour) {
		tr.Difficulty = domain.DifficultyEasy
		tr.RatingsAverage = 5
		tr.Secret = true // excluded from aggregations
	})

	stats, err := s.Tours().Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one difficulty group, got %d: %+v", len(stats), stats)
	}
	st := stats[0]
	if st.Difficulty != "EASY" {
		t.Errorf("difficulty: got %q", st.Difficulty)
	}
	if st.NumTours != 2 || st.NumRatings != 16 {
		t.Errorf("counts: tours %d ratings %d", st.NumTours, st.NumRatings)
	}
	if st.MinPrice != 100 || st.MaxPrice != 300 || st.AvgPrice != 200 {
		t.Errorf("prices: min %v max %v avg %v", st.MinPrice, st.MaxPrice, st.AvgPrice)
	}
}

func TestTourMonthlyPlan(t *testing.T) {
	s := newTestStore(t)

	date := func(m time.Month, d int) time.Time {
		return time.Date(2026, m, d, 9, 0, 0, 0, time.UTC)
	}
	makeTestTour(t, s, "Alpha", 100, func(tr *domain.Tour) {
		tr.StartDates = []time.Time{date(time.July, 1), date(time.July, 15), date(time.March, 2)}
	})
	makeTestTour(t, s, "Beta", 200, func(tr *domain.Tour) {
		tr.StartDates = []time.Time{date(time.July, 10), time.Date(2027, 7, 1, 9, 0, 0, 0, time.UTC)}
	})

	plan, err := s.Tours().MonthlyPlan(context.Background(), 2026)
	if err != nil {
		t.Fatalf("monthly plan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 months, got %d: %+v", len(plan), plan)
	}
	if plan[0].Month != 7 || plan[0].NumTourStarts != 3 {
		t.Errorf("july entry: %+v", plan[0])
	}
	if len(plan[0].Tours) != 3 {
		t.Errorf("july tour names: %v", plan[0].Tours)
	}
	if plan[1].Month != 3 || plan[1].NumTourStarts != 1 {
		t.Errorf("march entry: %+v", plan[1])
	}
}

func TestTourGetBySlug(t *testing.T) {
	s := newTestStore(t)

	tour := makeTestTour(t, s, "Sluggable", 100, func(tr *domain.Tour) { tr.Slug = "sluggable" })

	got, err := s.Tours().GetBySlug(context.Background(), "sluggable")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.ID != tour.ID {
		t.Errorf("got wrong tour: %s", got.ID)
	}

	if _, err := s.Tours().GetBySlug(context.Background(), "nope"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
