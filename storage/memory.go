package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-process ObjectStore used in tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, reader io.Reader, objectName, _ string) (UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return UploadResult{}, fmt.Errorf("storage: read payload: %w", err)
	}

	m.mu.Lock()
	m.objects[objectName] = data
	m.mu.Unlock()

	return UploadResult{ObjectName: objectName, Size: int64(len(data))}, nil
}

func (m *MemoryStore) Read(_ context.Context, objectName string) (io.ReadCloser, error) {
	m.mu.Lock()
	data, ok := m.objects[objectName]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("storage: object %s not found", objectName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(_ context.Context, objectName string) error {
	m.mu.Lock()
	delete(m.objects, objectName)
	m.mu.Unlock()
	return nil
}

// Len reports how many objects the store currently holds.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
