package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/store"
)

// UserRepo persists user accounts. All reads exclude deactivated accounts;
// deactivation is the soft-delete path, Delete is the admin hard delete.
type UserRepo struct {
	store *Store
}

var _ store.Repository[domain.User] = (*UserRepo)(nil)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, version, name, email, photo, role,
	password_hash, password_changed_at, password_reset_token, password_reset_expires, active`

// userFilterColumns maps queryable JSON field names to columns. Nothing
// password-related is queryable.
var userFilterColumns = columnMap{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		createdAt    string
		updatedAt    string
		changedAt    sql.NullString
		resetToken   sql.NullString
		resetExpires sql.NullString
		active       int
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Version,
		&u.Name,
		&u.Email,
		&u.Photo,
		&u.Role,
		&u.PasswordHash,
		&changedAt,
		&resetToken,
		&resetExpires,
		&active,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if changedAt.Valid && changedAt.String != "" {
		u.PasswordChangedAt, err = parseTime(changedAt.String)
		if err != nil {
			return nil, err
		}
	}
	u.PasswordResetToken = resetToken.String
	u.PasswordResetExpires, err = parseNullableTime(resetExpires)
	if err != nil {
		return nil, err
	}
	u.Active = active != 0

	return &u, nil
}

// Insert writes a new user.
// Returns store.ErrDuplicate if the email is already registered.
func (r *UserRepo) Insert(ctx context.Context, user *domain.User) error {
	var changedAt sql.NullString
	if !user.PasswordChangedAt.IsZero() {
		changedAt = sql.NullString{String: formatTime(user.PasswordChangedAt), Valid: true}
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, version, name, email, email_lower, photo, role,
			password_hash, password_changed_at, password_reset_token,
			password_reset_expires, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Version,
		user.Name,
		user.Email,
		emailLower(user.Email),
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		changedAt,
		nullString(user.PasswordResetToken),
		nullTimeString(user.PasswordResetExpires),
		boolToInt(user.Active),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

// Get retrieves an active user by ID.
// Returns store.ErrNotFound if the user does not exist or was deactivated.
func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND active = 1`, id)
	return finishUserRow(row)
}

// GetByEmail retrieves an active user by email, case-insensitively.
// Returns store.ErrNotFound if no such user exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_lower = ? AND active = 1`,
		emailLower(email))
	return finishUserRow(row)
}

// GetByResetToken retrieves the active user holding the given reset token
// hash. Expiry is the caller's check; the lookup only matches the hash.
func (r *UserRepo) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = ? AND active = 1`,
		tokenHash)
	return finishUserRow(row)
}

func finishUserRow(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List executes a shaped query over active users.
func (r *UserRepo) List(ctx context.Context, q store.ListQuery) ([]*domain.User, error) {
	clauses, args, err := buildFilter(q.Conditions, userFilterColumns)
	if err != nil {
		return nil, err
	}
	where := "active = 1"
	for _, c := range clauses {
		where += " AND " + c
	}

	order, err := buildOrder(q.Sort, userFilterColumns, "id ASC")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT ? OFFSET ?`,
		userColumns, where, order)
	limit, offset := q.Bounds()
	args = append(args, limit, offset)

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update performs a full row update on an existing user and bumps the
// version counter. Deactivation travels through here as well, so the row is
// matched by ID alone. Returns store.ErrNotFound if the user does not exist.
func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	var changedAt sql.NullString
	if !user.PasswordChangedAt.IsZero() {
		changedAt = sql.NullString{String: formatTime(user.PasswordChangedAt), Valid: true}
	}

	result, err := r.store.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?,
			version = version + 1,
			name = ?,
			email = ?,
			email_lower = ?,
			photo = ?,
			role = ?,
			password_hash = ?,
			password_changed_at = ?,
			password_reset_token = ?,
			password_reset_expires = ?,
			active = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Name,
		user.Email,
		emailLower(user.Email),
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		changedAt,
		nullString(user.PasswordResetToken),
		nullTimeString(user.PasswordResetExpires),
		boolToInt(user.Active),
		user.ID,
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
	user.Version++
	return nil
}

// Delete removes a user permanently (admin operation; users deactivate
// themselves via Update). Returns store.ErrNotFound if the user is missing.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
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

func emailLower(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
