package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trailheadapp/trailhead-server/internal/domain"
	"github.com/trailheadapp/trailhead-server/internal/errors"
	"github.com/trailheadapp/trailhead-server/internal/id"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
	"github.com/trailheadapp/trailhead-server/internal/store/sqlite"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// passwordFields never travel through profile or admin updates. Password
// changes go through AuthService so the change time is always recorded.
var passwordFields = []string{"password", "password_confirm", "current_password"}

// updateMeFields is what a user may change about their own profile.
var updateMeFields = []string{"name", "email", "photo"}

// UserService owns user profiles: self-service updates, soft deletion, and
// admin management.
type UserService struct {
	*CRUD[domain.User, *domain.User]
	users     *sqlite.UserRepo
	storage   *images.Storage
	processor *images.Processor
	logger    *slog.Logger
}

// NewUserService creates the user service.
func NewUserService(
	users *sqlite.UserRepo,
	storage *images.Storage,
	processor *images.Processor,
	validate *validation.Validator,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		CRUD:      NewCRUD[domain.User, *domain.User](users, validate, logger, id.PrefixUser, "user", Hooks[domain.User]{}),
		users:     users,
		storage:   storage,
		processor: processor,
		logger:    logger,
	}
}

// Create always fails: accounts are only created through signup, which is the
// one path that hashes a password.
func (s *UserService) Create(_ context.Context, _ *domain.User) error {
	return errors.Validation("This route is not defined! Please use /signup instead")
}

// UpdateMe applies a profile patch for the logged-in user. Only name, email,
// and photo may change; any password field in the patch is rejected outright
// rather than silently dropped.
func (s *UserService) UpdateMe(ctx context.Context, user *domain.User, patch map[string]any) (*domain.User, error) {
	for _, f := range passwordFields {
		if _, ok := patch[f]; ok {
			return nil, errors.Validation("This route is not for password updates. Please use /update-my-password.")
		}
	}

	filtered := make(map[string]any, len(updateMeFields))
	for _, f := range updateMeFields {
		if v, ok := patch[f]; ok {
			filtered[f] = v
		}
	}

	return s.Update(ctx, user.ID, filtered)
}

// SetMyPhoto processes an uploaded avatar, stores it, and records the new
// filename on the profile.
func (s *UserService) SetMyPhoto(ctx context.Context, user *domain.User, data []byte) (*domain.User, error) {
	processed, err := s.processor.ProcessUserPhoto(data)
	if err != nil {
		return nil, err
	}

	filename := images.UserPhotoFilename(user.ID, time.Now())
	if err := s.storage.Save(filename, processed); err != nil {
		return nil, fmt.Errorf("save user photo: %w", err)
	}

	return s.Update(ctx, user.ID, map[string]any{"photo": filename})
}

// DeleteMe deactivates the account. The row stays in place but disappears
// from every read until an admin reactivates it.
func (s *UserService) DeleteMe(ctx context.Context, user *domain.User) error {
	user.Active = false
	user.Touch()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	s.logger.Info("user deactivated", "user_id", user.ID)
	return nil
}

// AdminUpdate applies an admin patch to any user. Password fields are
// rejected here too: admins reset passwords through the same flow as users.
func (s *UserService) AdminUpdate(ctx context.Context, userID string, patch map[string]any) (*domain.User, error) {
	for _, f := range passwordFields {
		if _, ok := patch[f]; ok {
			return nil, errors.Validation("This route is not for password updates. Please use /update-my-password.")
		}
	}
	return s.Update(ctx, userID, patch)
}
