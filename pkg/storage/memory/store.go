// Package memory is an in-process blob store for local runs without a bucket.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/repairdesk-backend/pkg/storage"
)

type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
	// FailDeletes makes Delete return an error; it lets callers exercise cleanup failures.
	FailDeletes bool
}

func NewStore(baseURL string) *Store {
	return &Store{baseURL: baseURL, objects: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, key, contentType string, data []byte) (storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return storage.Object{Key: key, URL: s.baseURL + "/" + key, ContentType: contentType, Size: len(data)}, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeletes {
		return errors.New("memory store: delete disabled")
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Store) Ping(context.Context) error {
	return nil
}
