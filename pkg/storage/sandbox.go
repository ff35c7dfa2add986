package storage

import (
	"context"
	"fmt"
	"sync"
)

// Sandbox is an in-process Store for local/test runs: objects live only
// in memory, keyed the same content-addressed way S3Store would key them.
type Sandbox struct {
	mu   sync.RWMutex
	objs map[string]Object
}

// NewSandbox returns an empty in-memory store.
func NewSandbox() *Sandbox {
	return &Sandbox{objs: make(map[string]Object)}
}

var _ Store = (*Sandbox)(nil)

func (s *Sandbox) Put(ctx context.Context, data []byte, mime, filename string) (string, error) {
	key := fmt.Sprintf("%s/%s", HashBytes(data)[:8], filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[key] = Object{Data: append([]byte(nil), data...), MIME: mime}
	return key, nil
}

func (s *Sandbox) Get(ctx context.Context, key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[key]
	if !ok {
		return Object{}, fmt.Errorf("storage: sandbox object %s not found", key)
	}
	return obj, nil
}

func (s *Sandbox) Presign(ctx context.Context, key string) (string, error) {
	return "sandbox://" + key, nil
}
