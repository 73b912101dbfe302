package demo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"

	"factbench/internal/datastore"
	"factbench/internal/format"
	"factbench/internal/logging"
)

// Pool holds the demonstrations of every task, keyed by the id of the
// sample they were built from.
type Pool struct {
	sets map[string]map[int]Demo

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPool builds a pool from in-memory sets.
func NewPool(sets map[string]map[int]Demo, seed int64) *Pool {
	if sets == nil {
		sets = map[string]map[int]Demo{}
	}
	return &Pool{sets: sets, rng: rand.New(rand.NewSource(seed))} // #nosec G404 -- sampling only
}

// LoadPool reads <dir>/<task>/<id>.json for each task. A task without a
// directory has no demonstrations.
func LoadPool(ctx context.Context, dir string, tasks []string, seed int64, logger *slog.Logger) (*Pool, error) {
	logger = logging.OrDiscard(logger)
	sets := make(map[string]map[int]Demo, len(tasks))
	for _, task := range tasks {
		demos, err := datastore.NewFileStore[Demo](filepath.Join(dir, task)).LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("demo: load %s: %w", task, err)
		}
		sets[task] = demos
		logger.Debug("demonstrations loaded", "task", task, "count", len(demos))
	}
	return NewPool(sets, seed), nil
}

// Len returns the number of demonstrations for task.
func (p *Pool) Len(task string) int {
	return len(p.sets[task])
}

// Sample draws up to n demonstrations of task, never including the one
// keyed exclude. SamplingAll returns every candidate in id order. Random
// sampling draws without replacement, or with replacement when n exceeds
// the candidates.
func (p *Pool) Sample(task string, exclude, n int, mode Sampling) []Demo {
	set := p.sets[task]
	var ids []int
	for _, id := range format.SortedKeys(set) {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if mode == SamplingAll {
		out := make([]Demo, len(ids))
		for i, id := range ids {
			out[i] = set[id]
		}
		return out
	}
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Demo, 0, n)
	if n > len(ids) {
		for range n {
			out = append(out, set[ids[p.rng.Intn(len(ids))]])
		}
		return out
	}
	for _, i := range p.rng.Perm(len(ids))[:n] {
		out = append(out, set[ids[i]])
	}
	return out
}

// Shots configures the few-shot block a component adds to its prompts.
// A nil *Shots adds nothing.
type Shots struct {
	Pool *Pool
	Task string
	N    int
	Mode Sampling
}

// Block renders demonstrations for the sample carried by ctx.
func (s *Shots) Block(ctx context.Context) string {
	if s == nil || s.Pool == nil {
		return ""
	}
	exclude := -1
	if id, ok := SampleID(ctx); ok {
		exclude = id
	}
	return Format(s.Pool.Sample(s.Task, exclude, s.N, s.Mode))
}
