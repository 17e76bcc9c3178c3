package filestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// PosterStorage stores event poster images and returns publicly fetchable URLs.
type PosterStorage interface {
	SavePoster(data []byte, ext string) (string, error)
	DeletePoster(publicURL string) error
}

// LocalStorage saves posters to the local filesystem; the server exposes
// the directory at baseURL via a static route.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new LocalStorage instance.
// basePath is the directory on disk; baseURL is the public prefix the
// server serves it under.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// SavePoster writes poster bytes under a random name and returns the public URL
func (ls *LocalStorage) SavePoster(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty poster data")
	}
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	filename := uuid.New().String() + ext
	dstPath := filepath.Join(ls.basePath, filename)

	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write poster file")
		return "", fmt.Errorf("failed to write poster file: %w", err)
	}

	return ls.baseURL + "/" + filename, nil
}

// DeletePoster removes a previously stored poster by its public URL
func (ls *LocalStorage) DeletePoster(publicURL string) error {
	name := filepath.Base(publicURL)
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("invalid poster URL %q", publicURL)
	}

	if err := os.Remove(filepath.Join(ls.basePath, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete poster: %w", err)
	}
	return nil
}
