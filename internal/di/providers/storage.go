package providers

import (
	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/media/images"
)

// ImageStorages groups the per-resource image stores.
type ImageStorages struct {
	Tours *images.Storage
	Users *images.Storage
}

// ProvideImageStorages provides the tour and user image stores.
func ProvideImageStorages(i do.Injector) (*ImageStorages, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	base := cfg.Data.ImagesPath()

	tours, err := images.NewStorage(base, images.SubdirTours)
	if err != nil {
		return nil, err
	}
	users, err := images.NewStorage(base, images.SubdirUsers)
	if err != nil {
		return nil, err
	}

	log.Info("Image storage initialized", "path", base)

	return &ImageStorages{Tours: tours, Users: users}, nil
}

// ProvideImageProcessor provides the image resize pipeline.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return images.NewProcessor(log.Logger), nil
}
