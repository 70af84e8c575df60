package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Backend is a filesystem implementation of advisor.ArtifactStore
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Directory holding artifact documents
}

// New creates a new filesystem artifact store
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	return &Backend{baseDir: filepath.Clean(config.BaseDir)}, nil
}

// path resolves key inside baseDir, rejecting keys that escape it
func (b *Backend) path(key string) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(b.baseDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes base directory", key)
	}
	return p, nil
}

// Open opens the artifact stored under key
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, &advisor.ArtifactError{Store: "fs", Key: key, Op: "open", Err: err}
	}

	file, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, &advisor.ArtifactError{Store: "fs", Key: key, Op: "open", Err: advisor.ErrArtifactNotFound}
	} else if err != nil {
		return nil, &advisor.ArtifactError{Store: "fs", Key: key, Op: "open", Err: err}
	}

	return file, nil
}

// Put writes an artifact under key, creating directories as needed
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader) error {
	p, err := b.path(key)
	if err != nil {
		return &advisor.ArtifactError{Store: "fs", Key: key, Op: "put", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial document
	tmp, err := os.CreateTemp(filepath.Dir(p), ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	return nil
}
