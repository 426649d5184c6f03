package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore is an in-process MediaStore used by tests and the seeder
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), baseURL: baseURL}
}

func (s *MemoryStore) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 5; i++ {
		if _, taken := s.objects[key]; !taken {
			break
		}
		key = alternateKey(key)
	}
	s.objects[key] = data
	return &UploadResult{Key: key, URL: s.URL(key), Size: int64(len(data))}, nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) URL(key string) string {
	return s.baseURL + "/media/" + key
}

// Keys lists stored keys
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
