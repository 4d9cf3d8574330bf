package services

import (
	"context"
	"fmt"
	"sync"
)

// MockStorage is an in-memory Storage for testing
type MockStorage struct {
	objects map[string][]byte // map of key to file content
	puts    int
	mu      sync.RWMutex
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects: make(map[string][]byte),
	}
}

// SetAsMockForTesting installs this mock as the global storage and file service
func (m *MockStorage) SetAsMockForTesting() {
	SetStorage(m)
	SetFileService(NewFileService(m))
}

func (m *MockStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	m.puts++
	return nil
}

func (m *MockStorage) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("file not found in mock storage: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.ap-southeast-1.amazonaws.com/%s?mock=true", key), nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Objects returns a copy of everything stored
func (m *MockStorage) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		files[k] = v
	}
	return files
}

// Exists checks if key is stored
func (m *MockStorage) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[key]
	return exists
}

// PutCount is how many Put calls the mock has seen
func (m *MockStorage) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Clear removes all objects
func (m *MockStorage) Clear() {
	m.mu.Lock()
	m.objects = make(map[string][]byte)
	m.puts = 0
	m.mu.Unlock()
}
