package providers

import (
	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve full-text index over tours.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewIndex(search.Options{
		IndexPath:   cfg.Data.SearchIndexPath(),
		VersionPath: cfg.Data.SearchIndexPath() + ".version",
		Logger:      log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Search index opened", "path", cfg.Data.SearchIndexPath())

	return &SearchIndexHandle{Index: idx}, nil
}
