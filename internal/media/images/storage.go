// Package images provides upload processing, resizing, and storage for tour
// and user photos.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Subdirectories under the public image root.
const (
	SubdirTours = "tours"
	SubdirUsers = "users"
)

// Storage manages image filesystem operations for one resource kind.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage instance rooted at {basePath}/{subdir}.
// basePath is the public image directory (e.g. ~/Trailhead/data/img).
func NewStorage(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	storagePath := filepath.Join(basePath, subdir)

	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// Save stores processed image data under the given filename.
func (s *Storage) Save(filename string, imgData []byte) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(filename), imgData, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

// Get retrieves image data by filename.
func (s *Storage) Get(filename string) ([]byte, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image not found: %s: %w", filename, err)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return data, nil
}

// Exists checks if an image file exists.
func (s *Storage) Exists(filename string) bool {
	if filename == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(filename))
	return err == nil
}

// Delete removes an image file. Deleting a missing file is not an error.
func (s *Storage) Delete(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(filename)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete image file: %w", err)
	}

	return nil
}

// Path returns the full filesystem path for a stored image.
func (s *Storage) Path(filename string) string {
	return filepath.Join(s.basePath, filename)
}
