// Package datastore persists values as one JSON file per integer key.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// loadParallelism bounds concurrent file reads in LoadAll.
const loadParallelism = 8

// FileStore keeps values of type T in <Dir>/<key>.json.
type FileStore[T any] struct {
	Dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore[T any](dir string) *FileStore[T] {
	return &FileStore[T]{Dir: dir}
}

// Exists reports whether the store directory is present.
func (s *FileStore[T]) Exists() bool {
	info, err := os.Stat(s.Dir)
	return err == nil && info.IsDir()
}

// Keys lists the integer keys present on disk. Files whose stem is not an
// integer are ignored. A missing directory yields no keys.
func (s *FileStore[T]) Keys(_ context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: list %s: %w", s.Dir, err)
	}
	var keys []int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		k, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Load reads one value. ok is false when no file exists for key.
func (s *FileStore[T]) Load(_ context.Context, key int) (v T, ok bool, err error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("datastore: load %d: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("datastore: unmarshal %d: %w", key, err)
	}
	return v, true, nil
}

// LoadAll reads every value in the directory concurrently.
func (s *FileStore[T]) LoadAll(ctx context.Context) (map[int]T, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]T, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadParallelism)
	for _, k := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, ok, err := s.Load(gctx, k)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			out[k] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes one value, creating the directory if needed.
func (s *FileStore[T]) Save(_ context.Context, key int, v T) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("datastore: create store dir: %w", err)
	}
	if err := WriteJSON(s.path(key), v); err != nil {
		return fmt.Errorf("datastore: save %d: %w", key, err)
	}
	return nil
}

func (s *FileStore[T]) path(key int) string {
	return filepath.Join(s.Dir, strconv.Itoa(key)+".json")
}
