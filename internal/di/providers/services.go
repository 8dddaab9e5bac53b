package providers

import (
	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/auth"
	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/mail"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
	"github.com/trailheadapp/trailhead-server/internal/service"
	"github.com/trailheadapp/trailhead-server/internal/validation"
)

// ProvideAuthService provides signup, login, and the password flows.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	mailer := do.MustInvoke[mail.Mailer](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Users(), tokens, mailer, validate, log.Logger, cfg.Server.PublicURL), nil
}

// ProvideTourService provides tour CRUD, aggregations, geo queries, and search.
func ProvideTourService(i do.Injector) (*service.TourService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storages := do.MustInvoke[*ImageStorages](i)
	processor := do.MustInvoke[*images.Processor](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTourService(storeHandle.Tours(), searchHandle.Index, storages.Tours, processor, validate, log.Logger), nil
}

// ProvideUserService provides user administration and self-service profiles.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	storages := do.MustInvoke[*ImageStorages](i)
	processor := do.MustInvoke[*images.Processor](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Users(), storages.Users, processor, validate, log.Logger), nil
}

// ProvideReviewService provides review CRUD with rating aggregation.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Reviews(), storeHandle.Tours(), validate, log.Logger), nil
}
