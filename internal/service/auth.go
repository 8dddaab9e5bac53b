package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/mail"
	"github.com/trailheadapp/trailhead-server/internal/store"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// AuthService handles signup, login, and the password lifecycle.
type AuthService struct {
	users     *sqlite.UserRepo
	tokens    *auth.TokenService
	mailer    mail.Mailer
	validate  *validation.Validator
	logger    *slog.Logger
	publicURL string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users *sqlite.UserRepo,
	tokens *auth.TokenService,
	mailer mail.Mailer,
	validate *validation.Validator,
	logger *slog.Logger,
	publicURL string,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		validate:  validate,
		logger:    logger,
		publicURL: publicURL,
	}
}

// SignupRequest contains new account data.
type SignupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=1024"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	// Role is optional and may not be admin.
	Role domain.Role `json:"role" validate:"omitempty,oneof=user guide lead-guide"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult pairs a user with a fresh session token.
type AuthResult struct {
	User  *domain.User
	Token string
}

// Signup creates a new account and logs it in. Privileged roles other than
// admin can be requested at signup; admin accounts are only ever promoted by
// an existing admin.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Entity:       domain.Entity{ID: userID},
		Name:         req.Name,
		Email:        req.Email,
		Photo:        domain.DefaultUserPhoto,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
	}
	user.InitTimestamps()

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errors.Duplicate("Duplicate field value for user. Please use another value!")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if role != domain.RoleUser {
		s.logger.Warn("privileged role requested at signup", "user_id", userID, "role", role)
	}

	// Welcome email is best effort. The account exists either way.
	accountURL := s.publicURL + "/me"
	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name, accountURL); err != nil {
		s.logger.Warn("failed to send welcome email", "user_id", userID, "error", err)
	}

	s.logger.Info("user signed up", "user_id", userID)

	return s.issueToken(user)
}

// Login authenticates by email and password. The two failure modes return an
// identical error, so responses never reveal whether an email is registered.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.Validation("Please provide email and password!")
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.InvalidCredentials("Incorrect email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, errors.InvalidCredentials("Incorrect email or password")
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return s.issueToken(user)
}

// Verify validates a session token and returns its user. Used by the
// authentication middleware. Tokens issued before the user's last password
// change are rejected.
func (s *AuthService) Verify(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.tokens.VerifySessionToken(tokenString)
	if err != nil {
		return nil, errors.Unauthorized("Invalid token. Please log in again!").WithCause(err)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Unauthorized("The user belonging to this token does no longer exist.")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, errors.Unauthorized("User recently changed password! Please log in again.")
	}

	return user, nil
}

// ForgotPassword generates a single-use reset token and emails its plain form
// to the user. Only the sha256 of the token is stored. If the email cannot be
// sent the token is cleared again, so no orphaned token stays live.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFound("There is no user with that email address.")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	plain, hashed, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expires := time.Now().Add(auth.ResetTokenTTL)
	user.PasswordResetToken = hashed
	user.PasswordResetExpires = &expires
	user.Touch()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.publicURL + "/api/v1/users/reset-password/" + plain
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		s.logger.Error("failed to send reset email", "user_id", user.ID, "error", err)

		user.ClearResetToken()
		user.Touch()
		if clearErr := s.users.Update(ctx, user); clearErr != nil {
			s.logger.Error("failed to clear reset token", "user_id", user.ID, "error", clearErr)
		}
		return errors.Internal("There was an error sending the email. Try again later!").WithCause(err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password, returning a
// fresh session. The token is single use: it is cleared on success, and
// recording the password change time invalidates all previously issued
// session tokens.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken, password, passwordConfirm string) (*AuthResult, error) {
	user, err := s.users.GetByResetToken(ctx, auth.HashResetToken(plainToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Validation("Token is invalid or has expired")
		}
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}
	if !user.HasResetToken(time.Now()) {
		return nil, errors.Validation("Token is invalid or has expired")
	}

	if err := s.setPassword(ctx, user, password, passwordConfirm); err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user_id", user.ID)

	return s.issueToken(user)
}

// UpdatePassword changes a logged-in user's password after re-checking the
// current one, and returns a fresh session.
func (s *AuthService) UpdatePassword(ctx context.Context, user *domain.User, current, password, passwordConfirm string) (*AuthResult, error) {
	valid, err := auth.VerifyPassword(user.PasswordHash, current)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, errors.Unauthorized("Your current password is wrong.")
	}

	if err := s.setPassword(ctx, user, password, passwordConfirm); err != nil {
		return nil, err
	}

	s.logger.Info("password updated", "user_id", user.ID)

	return s.issueToken(user)
}

// setPassword validates and persists a new password, recording the change
// time and clearing any outstanding reset token.
func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password, passwordConfirm string) error {
	if password == "" || password != passwordConfirm {
		return errors.ValidationWithDetails("Invalid input data", map[string]string{
			"password_confirm": "must match the password field",
		})
	}
	if len(password) < auth.MinPasswordLength {
		return errors.ValidationWithDetails("Invalid input data", map[string]string{
			"password": fmt.Sprintf("must have at least %d characters", auth.MinPasswordLength),
		})
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.PasswordChangedAt = time.Now()
	user.ClearResetToken()
	user.Touch()

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

// issueToken generates a session token for the user.
func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// SessionDuration exposes the configured session lifetime for cookie expiry.
func (s *AuthService) SessionDuration() time.Duration {
	return s.tokens.SessionDuration()
}
