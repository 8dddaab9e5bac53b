package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

// ReviewRepo persists reviews. The UNIQUE(tour_id, user_id) constraint is the
// backstop that keeps one review per user per tour even under concurrent writes.
type ReviewRepo struct {
	store *Store
}

var _ store.Repository[domain.Review] = (*ReviewRepo)(nil)

// reviewColumns is the ordered list of columns selected in review queries,
// including the joined author profile. Must match the scan order in scanReview.
const reviewColumns = `r.id, r.created_at, r.updated_at, r.version, r.tour_id,
	r.user_id, r.rating, r.review, u.name, u.photo`

var reviewFilterColumns = columnMap{
	"id":         "r.id",
	"tour_id":    "r.tour_id",
	"user_id":    "r.user_id",
	"rating":     "r.rating",
	"created_at": "r.created_at",
}

// scanReview scans a joined review row into a domain.Review with its author.
func scanReview(scanner interface{ Scan(dest ...any) error }) (*domain.Review, error) {
	var (
		rev         domain.Review
		createdAt   string
		updatedAt   string
		authorName  sql.NullString
		authorPhoto sql.NullString
	)

	err := scanner.Scan(
		&rev.ID,
		&createdAt,
		&updatedAt,
		&rev.Version,
		&rev.TourID,
		&rev.UserID,
		&rev.Rating,
		&rev.Text,
		&authorName,
		&authorPhoto,
	)
	if err != nil {
		return nil, err
	}

	rev.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	rev.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if authorName.Valid {
		rev.Author = &domain.ReviewAuthor{
			ID:    rev.UserID,
			Name:  authorName.String,
			Photo: authorPhoto.String,
		}
	}

	return &rev, nil
}

// Insert writes a new review.
// Returns store.ErrDuplicate if the user already reviewed the tour.
func (r *ReviewRepo) Insert(ctx context.Context, review *domain.Review) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO reviews (id, created_at, updated_at, version, tour_id, user_id, rating, review)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		formatTime(review.CreatedAt),
		formatTime(review.UpdatedAt),
		review.Version,
		review.TourID,
		review.UserID,
		review.Rating,
		review.Text,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

// Get retrieves a review by ID with its author profile.
// Returns store.ErrNotFound if the review does not exist.
func (r *ReviewRepo) Get(ctx context.Context, id string) (*domain.Review, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id AND u.active = 1
		WHERE r.id = ?`, id)

	rev, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// List executes a shaped query over reviews; nested tour routes scope it
// with a tour_id condition.
func (r *ReviewRepo) List(ctx context.Context, q store.ListQuery) ([]*domain.Review, error) {
	clauses, args, err := buildFilter(q.Conditions, reviewFilterColumns)
	if err != nil {
		return nil, err
	}
	where := "1 = 1"
	for _, c := range clauses {
		where += " AND " + c
	}

	order, err := buildOrder(q.Sort, reviewFilterColumns, "r.id ASC")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id AND u.active = 1
		WHERE %s ORDER BY %s LIMIT ? OFFSET ?`,
		reviewColumns, where, order)
	limit, offset := q.Bounds()
	args = append(args, limit, offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// Update rewrites the mutable fields of an existing review and bumps the
// version counter. Returns store.ErrNotFound if the review does not exist.
func (r *ReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE reviews SET
			updated_at = ?,
			version = version + 1,
			rating = ?,
			review = ?
		WHERE id = ?`,
		formatTime(review.UpdatedAt),
		review.Rating,
		review.Text,
		review.ID,
	)
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
	review.Version++
	return nil
}

// Delete removes a review.
// Returns store.ErrNotFound if the review does not exist.
func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
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

// RatingSummary aggregates the review count and average rating for a tour.
// Zero count means no reviews remain.
func (r *ReviewRepo) RatingSummary(ctx context.Context, tourID string) (count int, average float64, err error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT count(*), coalesce(avg(rating), 0) FROM reviews WHERE tour_id = ?`, tourID)
	if err := row.Scan(&count, &average); err != nil {
		return 0, 0, err
	}
	return count, average, nil
}
