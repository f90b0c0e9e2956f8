package storage

import (
	"context"
	"sync"
)

// Memory is a process-local BlobStore.
type Memory struct {
	mu    sync.RWMutex
	blobs map[Locator]Blob
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[Locator]Blob)}
}

func (m *Memory) Put(_ context.Context, blob Blob) (Locator, error) {
	loc := NewLocator()
	stored := Blob{ContentType: blob.ContentType, Data: append([]byte(nil), blob.Data...)}

	m.mu.Lock()
	m.blobs[loc] = stored
	m.mu.Unlock()
	return loc, nil
}

func (m *Memory) Get(_ context.Context, loc Locator) (Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[loc]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return Blob{ContentType: blob.ContentType, Data: append([]byte(nil), blob.Data...)}, nil
}

func (m *Memory) Delete(_ context.Context, loc Locator) error {
	m.mu.Lock()
	delete(m.blobs, loc)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *Memory) Close() error { return nil }

var _ BlobStore = (*Memory)(nil)
