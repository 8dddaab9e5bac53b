package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

// Roles in ascending order of privilege.
const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultUserPhoto is the placeholder served until a user uploads a photo.
const DefaultUserPhoto = "default.jpg"

// User represents an account in the system.
type User struct {
	Entity
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role" validate:"required,oneof=user guide lead-guide admin"`
	// PasswordHash is stored argon2id-encoded and never serialized to clients.
	PasswordHash      string    `json:"-"`
	PasswordChangedAt time.Time `json:"-"`
	// PasswordResetToken holds only the sha256 hex of the outstanding reset
	// token. The plain token exists solely in the reset email.
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	// Active is the soft-delete flag. Default queries exclude inactive users.
	Active bool `json:"-"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issue time. Tokens issued before a password change are dead.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	// Compare at second granularity: the hash write and the token issue can
	// land within the same instant during a reset flow.
	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}

// HasResetToken reports whether an unexpired reset token is outstanding.
func (u *User) HasResetToken(now time.Time) bool {
	return u.PasswordResetToken != "" && u.PasswordResetExpires != nil && now.Before(*u.PasswordResetExpires)
}

// ClearResetToken invalidates any outstanding password reset token.
func (u *User) ClearResetToken() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}

// FirstName returns the part of the name before the first space, used in
// email salutations.
func (u *User) FirstName() string {
	for i := range len(u.Name) {
		if u.Name[i] == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}
