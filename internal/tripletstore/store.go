// Package tripletstore caches the triplets extracted from each corpus
// passage, generating them on first use.
package tripletstore

import (
	"context"
	"fmt"
	"log/slog"

	"factbench/internal/datastore"
	"factbench/internal/extract"
	"factbench/internal/logging"
	"factbench/internal/triplet"
)

// Mode selects how the triplets of several passages are combined.
type Mode string

const (
	// Flat puts every triplet in one segment.
	Flat Mode = "flat"
	// Segmented packs whole passages into segments of bounded length.
	Segmented Mode = "segmented"
)

// Corpus resolves passage ids to text.
type Corpus interface {
	Passage(id int) (string, bool)
}

// Options configures a Store.
type Options struct {
	// Persist, when set, backs the cache with one file per passage id.
	Persist *datastore.FileStore[[]triplet.Triplet]
	// Save controls whether newly generated triplets are written to Persist.
	Save      bool
	MaxLength int
	Logger    *slog.Logger
}

// Store is a get-or-generate triplet cache. It is not safe for concurrent
// writers; one process owns a store directory at a time.
type Store struct {
	corpus Corpus
	gen    extract.Generator
	opts   Options
	cache  map[int][]triplet.Triplet
	log    *slog.Logger
}

// New returns a store over corpus that fills misses with gen.
func New(corpus Corpus, gen extract.Generator, opts Options) *Store {
	return &Store{
		corpus: corpus,
		gen:    gen,
		opts:   opts,
		cache:  make(map[int][]triplet.Triplet),
		log:    logging.OrDiscard(opts.Logger),
	}
}

// Load fills the cache from the persisted directory.
func (s *Store) Load(ctx context.Context) error {
	if s.opts.Persist == nil {
		return nil
	}
	all, err := s.opts.Persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("tripletstore: %w", err)
	}
	stale := 0
	for id, ts := range all {
		if triplet.HasEmpty(ts) {
			stale++
			continue
		}
		s.cache[id] = ts
	}
	s.log.Info("triplet cache loaded", "passages", len(all)-stale, "skipped", stale, "dir", s.opts.Persist.Dir)
	return nil
}

// Len returns the number of cached passages.
func (s *Store) Len() int { return len(s.cache) }

// Get returns the triplets of passage id, generating and caching them on
// a miss. Generation failures are logged and yield no triplets. Output
// holding the Empty sentinel is returned as is for this call. Neither is
// cached, so a later call tries again.
func (s *Store) Get(ctx context.Context, id int) []triplet.Triplet {
	if ts, ok := s.cache[id]; ok {
		return ts
	}
	text, ok := s.corpus.Passage(id)
	if !ok {
		s.log.Warn("passage not in corpus", "passage_id", id)
		return nil
	}
	ts, err := s.gen.Generate(ctx, text)
	if err != nil {
		s.log.Warn("triplet generation failed", "passage_id", id, "error", err)
		return nil
	}
	if triplet.HasEmpty(ts) {
		s.log.Warn("malformed triplets not cached", "passage_id", id)
		return ts
	}
	s.cache[id] = ts
	if s.opts.Save && s.opts.Persist != nil {
		if err := s.opts.Persist.Save(ctx, id, ts); err != nil {
			s.log.Warn("persist triplets", "passage_id", id, "error", err)
		}
	}
	return ts
}

// GetMany returns the reference triplets of ids combined per mode. The
// result is nil when no passage yields any triplet.
func (s *Store) GetMany(ctx context.Context, ids []int, mode Mode) [][]triplet.Triplet {
	batches := make([]triplet.Batch, 0, len(ids))
	total := 0
	for _, id := range ids {
		ts := s.Get(ctx, id)
		total += len(ts)
		batches = append(batches, triplet.Batch{PassageID: id, Triplets: ts})
	}
	if total == 0 {
		return nil
	}
	if mode == Segmented {
		return triplet.Segment(batches, s.opts.MaxLength, s.log)
	}
	flat := make([]triplet.Triplet, 0, total)
	for _, b := range batches {
		flat = append(flat, b.Triplets...)
	}
	return [][]triplet.Triplet{flat}
}

// GenerateAll fills the cache for every id, stopping early if ctx ends.
func (s *Store) GenerateAll(ctx context.Context, ids []int) error {
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Get(ctx, id)
		if (i+1)%100 == 0 {
			s.log.Info("triplet generation progress", "done", i+1, "total", len(ids))
		}
	}
	return nil
}
