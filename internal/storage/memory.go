package storage

import (
	"context"
	"strings"
	"sync"
)

type blob struct {
	data        []byte
	contentType string
}

// MemoryStore holds uploads in process memory. The handlers serve them back
// under baseURL.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]blob
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		blobs:   make(map[string]blob),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.blobs[key] = blob{data: cp, contentType: contentType}
	s.mu.Unlock()
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b.data, b.contentType, ok
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Name() string {
	return "memory"
}
