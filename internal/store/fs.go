package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FSBackend keeps each namespace in <base>/<namespace>.json.
type FSBackend struct {
	base  string
	locks keyedMutex
}

func NewFSBackend(base string) (*FSBackend, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSBackend{base: base}, nil
}

func (s *FSBackend) path(namespace string) (string, error) {
	if !namespacePattern.MatchString(namespace) {
		return "", fmt.Errorf("invalid namespace %q", namespace)
	}
	return filepath.Join(s.base, namespace+".json"), nil
}

func (s *FSBackend) Load(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(namespace)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (s *FSBackend) Update(ctx context.Context, namespace string, fn func([]byte) ([]byte, error)) error {
	l := s.locks.get(namespace)
	l.Lock()
	defer l.Unlock()

	cur, err := s.Load(ctx, namespace)
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
	p, _ := s.path(namespace)
	tmp, err := os.CreateTemp(s.base, namespace+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(next); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}
