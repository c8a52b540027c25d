// Package storagetest provides an in-memory storage.Mirror for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/templui/photowall/internal/httprange"
	"github.com/templui/photowall/internal/storage"
)

type Mirror struct {
	mu      sync.Mutex
	objects map[string][]byte
	saves   int
}

var _ storage.Mirror = (*Mirror)(nil)

func NewMirror() *Mirror {
	return &Mirror{objects: make(map[string][]byte)}
}

// Saves returns how many objects were written.
func (m *Mirror) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Mirror) Stat(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return 0, storage.ErrNotMirrored
	}
	return int64(len(b)), nil
}

func (m *Mirror) Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return fmt.Errorf("short write: got %d bytes, want %d", len(b), size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.saves++
	return nil
}

func (m *Mirror) OpenRange(ctx context.Context, key string, r *httprange.Range) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotMirrored
	}
	if r != nil {
		b = b[r.Start : r.End+1]
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *Mirror) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
