// Package search maintains a full-text index over tours.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/trailheadapp/trailhead-server/internal/domain"
)

// Index wraps a Bleve index with tour-specific operations.
//
// Thread safety: all public methods are safe for concurrent use.
// The mutex protects against index corruption during rebuild operations.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // Protects index operations during rebuild
}

// Options configures the search index.
type Options struct {
	IndexPath   string       // Full path of the .bleve directory
	VersionPath string       // File recording the mapping version the index was built with
	Logger      *slog.Logger // Logger for operations (uses stderr text if nil)
}

// mappingVersion is incremented whenever the index mapping changes.
// This triggers an automatic rebuild on startup when the version doesn't match.
const mappingVersion = "1"

// NewIndex creates or opens the tour search index.
// If an existing index is found, it opens it. If the existing index is
// corrupted or was built with an outdated mapping, it's removed and recreated.
func NewIndex(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	var index bleve.Index
	var err error
	needsRebuild := false

	indexExists := false
	if _, statErr := os.Stat(opts.IndexPath); statErr == nil {
		indexExists = true
	}

	if indexExists {
		existingVersion, readErr := os.ReadFile(opts.VersionPath)
		if readErr != nil {
			logger.Info("search index has no version file, will rebuild with current mapping",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		} else if string(existingVersion) != mappingVersion {
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existingVersion),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		index, err = bleve.Open(opts.IndexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", opts.IndexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if removeErr := os.RemoveAll(opts.IndexPath); removeErr != nil {
			return nil, fmt.Errorf("remove old index: %w", removeErr)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(opts.IndexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if writeErr := os.WriteFile(opts.VersionPath, []byte(mappingVersion), 0644); writeErr != nil {
			logger.Warn("failed to write search version file", "error", writeErr)
		}
		logger.Info("created new search index", "path", opts.IndexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", opts.IndexPath)
	}

	return &Index{
		index:  index,
		path:   opts.IndexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexTour indexes a single tour, replacing any previous entry.
func (s *Index) IndexTour(tour *domain.Tour) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewTourDocument(tour)
	// Index the map form so field names match the mapping (lowercase).
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexTours indexes multiple tours in batches. This is significantly
// faster than calling IndexTour in a loop, and bounds memory during the
// boot-time reindex.
func (s *Index) IndexTours(tours []*domain.Tour) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(tours); i += batchSize {
		end := min(i+batchSize, len(tours))
		chunk := tours[i:end]

		batch := s.index.NewBatch()
		for _, tour := range chunk {
			doc := NewTourDocument(tour)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteTour removes a tour from the index.
func (s *Index) DeleteTour(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed tours.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index, creates a fresh one, and indexes the
// given tours. Acquires an exclusive lock, blocking searches until done.
func (s *Index) Rebuild(tours []*domain.Tour) error {
	s.mu.Lock()

	if err := s.index.Close(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.mu.Unlock()

	if err := s.IndexTours(tours); err != nil {
		return fmt.Errorf("reindex tours: %w", err)
	}

	s.logger.Info("rebuilt search index", "path", s.path, "tours", len(tours))
	return nil
}
