package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

// TourRepo persists tours and their itinerary child rows.
type TourRepo struct {
	store *Store
}

var _ store.Repository[domain.Tour] = (*TourRepo)(nil)

// tourColumns is the ordered list of columns selected in tour queries.
// Must match the scan order in scanTour.
const tourColumns = `id, created_at, updated_at, version, name, slug, duration,
	max_group_size, difficulty, price, price_discount, ratings_average,
	ratings_quantity, summary, description, image_cover, images,
	image_blur_hash, secret, start_lng, start_lat, start_address, start_description`

// tourFilterColumns maps queryable JSON field names to columns. Secret stays
// out: hidden tours cannot be reached by filtering for them.
var tourFilterColumns = columnMap{
	"id":               "id",
	"name":             "name",
	"slug":             "slug",
	"duration":         "duration",
	"max_group_size":   "max_group_size",
	"difficulty":       "difficulty",
	"price":            "price",
	"price_discount":   "price_discount",
	"ratings_average":  "ratings_average",
	"ratings_quantity": "ratings_quantity",
	"created_at":       "created_at",
}

// scanTour scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tour.
func scanTour(scanner interface{ Scan(dest ...any) error }) (*domain.Tour, error) {
	var t domain.Tour

	var (
		createdAt     string
		updatedAt     string
		priceDiscount sql.NullFloat64
		description   sql.NullString
		imagesJSON    string
		blurHash      sql.NullString
		secret        int
		startAddress  sql.NullString
		startDesc     sql.NullString
	)

	err := scanner.Scan(
		&t.ID,
		&createdAt,
		&updatedAt,
		&t.Version,
		&t.Name,
		&t.Slug,
		&t.Duration,
		&t.MaxGroupSize,
		&t.Difficulty,
		&t.Price,
		&priceDiscount,
		&t.RatingsAverage,
		&t.RatingsQuantity,
		&t.Summary,
		&description,
		&t.ImageCover,
		&imagesJSON,
		&blurHash,
		&secret,
		&t.StartLocation.Coordinates[0],
		&t.StartLocation.Coordinates[1],
		&startAddress,
		&startDesc,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if priceDiscount.Valid {
		t.PriceDiscount = priceDiscount.Float64
	}
	t.Description = description.String
	t.ImageBlurHash = blurHash.String
	t.Secret = secret != 0

	if err := json.Unmarshal([]byte(imagesJSON), &t.Images); err != nil {
		return nil, fmt.Errorf("decode images for tour %s: %w", t.ID, err)
	}

	t.StartLocation.Type = "Point"
	t.StartLocation.Address = startAddress.String
	t.StartLocation.Description = startDesc.String

	return &t, nil
}

// Insert writes a new tour and its child rows.
// Returns store.ErrDuplicate if the tour name is taken.
func (r *TourRepo) Insert(ctx context.Context, tour *domain.Tour) error {
	imagesJSON, err := json.Marshal(tour.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tours (
			id, created_at, updated_at, version, name, slug, duration,
			max_group_size, difficulty, price, price_discount, ratings_average,
			ratings_quantity, summary, description, image_cover, images,
			image_blur_hash, secret, start_lng, start_lat, start_address, start_description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tour.ID,
		formatTime(tour.CreatedAt),
		formatTime(tour.UpdatedAt),
		tour.Version,
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		string(tour.Difficulty),
		tour.Price,
		nullFloat(tour.PriceDiscount),
		tour.RatingsAverage,
		tour.RatingsQuantity,
		tour.Summary,
		nullString(tour.Description),
		tour.ImageCover,
		string(imagesJSON),
		nullString(tour.ImageBlurHash),
		boolToInt(tour.Secret),
		tour.StartLocation.Lng(),
		tour.StartLocation.Lat(),
		nullString(tour.StartLocation.Address),
		nullString(tour.StartLocation.Description),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}

	if err := insertTourChildren(ctx, tx, tour); err != nil {
		return err
	}

	return tx.Commit()
}

// insertTourChildren writes start dates, locations, and guide links.
func insertTourChildren(ctx context.Context, tx *sql.Tx, tour *domain.Tour) error {
	for i, d := range tour.StartDates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tour_start_dates (tour_id, position, start_date) VALUES (?, ?, ?)`,
			tour.ID, i, formatTime(d)); err != nil {
			return err
		}
	}
	for i, loc := range tour.Locations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tour_locations (tour_id, position, lng, lat, address, description, day)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tour.ID, i, loc.Lng(), loc.Lat(),
			nullString(loc.Address), nullString(loc.Description), loc.Day); err != nil {
			return err
		}
	}
	for i, guideID := range tour.GuideIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tour_guides (tour_id, user_id, position) VALUES (?, ?, ?)`,
			tour.ID, guideID, i); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a tour by ID with its itinerary and guides loaded.
// Returns store.ErrNotFound if the tour does not exist.
func (r *TourRepo) Get(ctx context.Context, id string) (*domain.Tour, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = ?`, id)
	return r.finishGet(ctx, row)
}

// GetBySlug retrieves a non-secret tour by slug, used by the HTML tour page.
func (r *TourRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE slug = ? AND secret = 0`, slug)
	return r.finishGet(ctx, row)
}

func (r *TourRepo) finishGet(ctx context.Context, row *sql.Row) (*domain.Tour, error) {
	t, err := scanTour(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update performs a full row update, bumps the version counter, and rewrites
// the child rows. Returns store.ErrNotFound if the tour does not exist.
func (r *TourRepo) Update(ctx context.Context, tour *domain.Tour) error {
	imagesJSON, err := json.Marshal(tour.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
		UPDATE tours SET
			updated_at = ?,
			version = version + 1,
			name = ?,
			slug = ?,
			duration = ?,
			max_group_size = ?,
			difficulty = ?,
			price = ?,
			price_discount = ?,
			ratings_average = ?,
			ratings_quantity = ?,
			summary = ?,
			description = ?,
			image_cover = ?,
			images = ?,
			image_blur_hash = ?,
			secret = ?,
			start_lng = ?,
			start_lat = ?,
			start_address = ?,
			start_description = ?
		WHERE id = ?`,
		formatTime(tour.UpdatedAt),
		tour.Name,
		tour.Slug,
		tour.Duration,
		tour.MaxGroupSize,
		string(tour.Difficulty),
		tour.Price,
		nullFloat(tour.PriceDiscount),
		tour.RatingsAverage,
		tour.RatingsQuantity,
		tour.Summary,
		nullString(tour.Description),
		tour.ImageCover,
		string(imagesJSON),
		nullString(tour.ImageBlurHash),
		boolToInt(tour.Secret),
		tour.StartLocation.Lng(),
		tour.StartLocation.Lat(),
		nullString(tour.StartLocation.Address),
		nullString(tour.StartLocation.Description),
		tour.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	// Child rows are rewritten wholesale; they are small and versionless.
	for _, table := range []string{"tour_start_dates", "tour_locations", "tour_guides"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tour_id = ?`, tour.ID); err != nil {
			return err
		}
	}
	if err := insertTourChildren(ctx, tx, tour); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	tour.Version++
	return nil
}

// Delete removes a tour. Child rows cascade.
// Returns store.ErrNotFound if the tour does not exist.
func (r *TourRepo) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM tours WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List executes a shaped query over non-secret tours.
func (r *TourRepo) List(ctx context.Context, q store.ListQuery) ([]*domain.Tour, error) {
	clauses, args, err := buildFilter(q.Conditions, tourFilterColumns)
	if err != nil {
		return nil, err
	}
	where := "secret = 0"
	for _, c := range clauses {
		where += " AND " + c
	}

	order, err := buildOrder(q.Sort, tourFilterColumns, "id ASC")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM tours WHERE %s ORDER BY %s LIMIT ? OFFSET ?`,
		tourColumns, where, order)
	limit, offset := q.Bounds()
	args = append(args, limit, offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []*domain.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range tours {
		if err := r.loadChildren(ctx, t); err != nil {
			return nil, err
		}
	}
	return tours, nil
}

// ListAll returns every non-secret tour with children loaded, used by the
// geo endpoints, the search index build, and the overview page.
func (r *TourRepo) ListAll(ctx context.Context) ([]*domain.Tour, error) {
	return r.List(ctx, store.ListQuery{Page: 1, Limit: 1 << 30})
}

// loadChildren populates start dates, locations, and guides for one tour.
func (r *TourRepo) loadChildren(ctx context.Context, tour *domain.Tour) error {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT start_date FROM tour_start_dates WHERE tour_id = ? ORDER BY position ASC`, tour.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		d, err := parseTime(raw)
		if err != nil {
			return err
		}
		tour.StartDates = append(tour.StartDates, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	locRows, err := r.store.db.QueryContext(ctx, `
		SELECT lng, lat, address, description, day
		FROM tour_locations WHERE tour_id = ? ORDER BY position ASC`, tour.ID)
	if err != nil {
		return err
	}
	defer locRows.Close()
	for locRows.Next() {
		var (
			loc     domain.GeoPoint
			address sql.NullString
			desc    sql.NullString
		)
		if err := locRows.Scan(&loc.Coordinates[0], &loc.Coordinates[1], &address, &desc, &loc.Day); err != nil {
			return err
		}
		loc.Type = "Point"
		loc.Address = address.String
		loc.Description = desc.String
		tour.Locations = append(tour.Locations, loc)
	}
	if err := locRows.Err(); err != nil {
		return err
	}

	guideRows, err := r.store.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.photo, u.role
		FROM tour_guides tg
		JOIN users u ON u.id = tg.user_id AND u.active = 1
		WHERE tg.tour_id = ? ORDER BY tg.position ASC`, tour.ID)
	if err != nil {
		return err
	}
	defer guideRows.Close()
	for guideRows.Next() {
		var g domain.User
		if err := guideRows.Scan(&g.ID, &g.Name, &g.Email, &g.Photo, &g.Role); err != nil {
			return err
		}
		tour.GuideIDs = append(tour.GuideIDs, g.ID)
		tour.Guides = append(tour.Guides, &g)
	}
	return guideRows.Err()
}

// Stats groups non-secret, well-rated tours by difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]domain.TourStats, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT upper(difficulty), count(*), sum(ratings_quantity),
			avg(ratings_average), avg(price), min(price), max(price)
		FROM tours
		WHERE secret = 0 AND ratings_average >= 4.5
		GROUP BY upper(difficulty)
		ORDER BY avg(price) ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.TourStats
	for rows.Next() {
		var s domain.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan unwinds start dates within the given year into per-month
// counts, busiest month first, capped at the top five months.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]domain.MonthlyPlanEntry, error) {
	// RFC3339 timestamps in UTC sort lexicographically, so a string range
	// covers the year without SQL date functions.
	yearStart := formatTime(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	yearEnd := formatTime(time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC))

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT d.start_date, t.name
		FROM tour_start_dates d
		JOIN tours t ON t.id = d.tour_id AND t.secret = 0
		WHERE d.start_date >= ? AND d.start_date < ?`, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMonth := map[int]*domain.MonthlyPlanEntry{}
	for rows.Next() {
		var raw, name string
		if err := rows.Scan(&raw, &name); err != nil {
			return nil, err
		}
		d, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		m := int(d.UTC().Month())
		entry, ok := byMonth[m]
		if !ok {
			entry = &domain.MonthlyPlanEntry{Month: m}
			byMonth[m] = entry
		}
		entry.NumTourStarts++
		entry.Tours = append(entry.Tours, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plan := make([]domain.MonthlyPlanEntry, 0, len(byMonth))
	for _, entry := range byMonth {
		plan = append(plan, *entry)
	}
	// Busiest month first, calendar order on ties.
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].NumTourStarts != plan[j].NumTourStarts {
			return plan[i].NumTourStarts > plan[j].NumTourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	if len(plan) > 5 {
		plan = plan[:5]
	}
	return plan, nil
}
