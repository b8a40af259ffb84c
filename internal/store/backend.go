package store

import (
	"context"
	"sync"
)

// Backend persists one JSON document per namespace. Update runs fn as a
// transaction over the namespace: fn sees the current document (nil when
// absent) and returns the replacement. Nothing is written when fn fails.
type Backend interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Update(ctx context.Context, namespace string, fn func(doc []byte) ([]byte, error)) error
}

// keyedMutex hands out one mutex per namespace.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

type MemoryBackend struct {
	locks keyedMutex
	mu    sync.RWMutex
	docs  map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string][]byte{}}
}

func (m *MemoryBackend) Load(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.docs[namespace]), nil
}

func (m *MemoryBackend) Update(ctx context.Context, namespace string, fn func([]byte) ([]byte, error)) error {
	l := m.locks.get(namespace)
	l.Lock()
	defer l.Unlock()

	cur, err := m.Load(ctx, namespace)
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[namespace] = clone(next)
	m.mu.Unlock()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
