package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Backend is an in-memory implementation of advisor.ArtifactStore
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory artifact store
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Open returns the artifact stored under key
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[key]
	if !exists {
		return nil, &advisor.ArtifactError{Store: "memory", Key: key, Op: "open", Err: advisor.ErrArtifactNotFound}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores the artifact under key
func (b *Backend) Put(ctx context.Context, key string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = data
	return nil
}

// PutString is a convenience for tests and fixtures
func (b *Backend) PutString(key, doc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = []byte(doc)
}
