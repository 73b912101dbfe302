package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"factbench/internal/datastore"
	"factbench/internal/extract"
	"factbench/internal/hallucination"
	"factbench/internal/logging"
	"factbench/internal/tripletstore"
)

// Experiment serves evaluation samples: QA records with their reference
// documents and triplets, plus hallucination records on demand.
type Experiment struct {
	qa       []QARecord
	corpus   *Corpus
	triplets *tripletstore.Store
	mode     tripletstore.Mode

	hlStore  *datastore.FileStore[hallucination.Record]
	hlCache  map[int]*hallucination.Record
	injector hallucination.Injector
	gen      extract.Generator
	saveHl   bool

	log *slog.Logger
}

// ExperimentOptions wires an Experiment.
type ExperimentOptions struct {
	Mode tripletstore.Mode
	// Hallucinations caches records one file per sample id; may be nil.
	Hallucinations *datastore.FileStore[hallucination.Record]
	// Injector and Generator create missing hallucination records.
	Injector  hallucination.Injector
	Generator extract.Generator
	// SaveHallucinations persists newly generated records.
	SaveHallucinations bool
	Logger             *slog.Logger
}

// NewExperiment builds the sample source.
func NewExperiment(qa []QARecord, corpus *Corpus, triplets *tripletstore.Store, o ExperimentOptions) *Experiment {
	mode := o.Mode
	if mode == "" {
		mode = tripletstore.Segmented
	}
	return &Experiment{
		qa:       qa,
		corpus:   corpus,
		triplets: triplets,
		mode:     mode,
		hlStore:  o.Hallucinations,
		hlCache:  make(map[int]*hallucination.Record),
		injector: o.Injector,
		gen:      o.Generator,
		saveHl:   o.SaveHallucinations,
		log:      logging.OrDiscard(o.Logger),
	}
}

// Load reads the persisted triplet and hallucination caches.
func (e *Experiment) Load(ctx context.Context) error {
	if err := e.triplets.Load(ctx); err != nil {
		return err
	}
	if e.hlStore == nil {
		return nil
	}
	all, err := e.hlStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("dataset: hallucination records: %w", err)
	}
	for id, r := range all {
		e.hlCache[id] = &r
	}
	e.log.Info("hallucination records loaded", "records", len(all), "dir", e.hlStore.Dir)
	return nil
}

// Len returns the number of samples.
func (e *Experiment) Len() int { return len(e.qa) }

// Sample returns sample idx (0-based position) with reference documents
// and reference triplets filled in.
func (e *Experiment) Sample(ctx context.Context, idx int) (QARecord, error) {
	if idx < 0 || idx >= len(e.qa) {
		return QARecord{}, fmt.Errorf("dataset: sample %d out of range [0, %d)", idx, len(e.qa))
	}
	r := e.qa[idx]
	r.ReferenceDocuments = make([]string, 0, len(r.RelevantPassageIDs))
	for _, id := range r.RelevantPassageIDs {
		if text, ok := e.corpus.Passage(id); ok {
			r.ReferenceDocuments = append(r.ReferenceDocuments, text)
		}
	}
	r.ReferenceTriplets = e.triplets.GetMany(ctx, r.RelevantPassageIDs, e.mode)
	return r, nil
}

// Hallucination returns the validated hallucination record of r, generating
// it when none is cached. Invalid or failed generations are not cached.
func (e *Experiment) Hallucination(ctx context.Context, r QARecord) (*hallucination.Record, error) {
	if rec, ok := e.hlCache[r.ID]; ok {
		if err := hallucination.Validate(rec); err == nil {
			return rec, nil
		}
		delete(e.hlCache, r.ID)
	}
	if e.injector == nil || e.gen == nil {
		return nil, fmt.Errorf("dataset: no hallucination record for sample %d", r.ID)
	}
	rec, err := e.injector.Inject(ctx, hallucination.Source{ID: r.ID, Question: r.Question, Documents: r.ReferenceDocuments}, e.gen)
	if err != nil {
		return nil, err
	}
	if err := hallucination.Validate(rec); err != nil {
		return nil, err
	}
	e.hlCache[r.ID] = rec
	if e.saveHl && e.hlStore != nil {
		if err := e.hlStore.Save(ctx, r.ID, *rec); err != nil {
			e.log.Warn("persist hallucination record", "sample_id", r.ID, "error", err)
		}
	}
	return rec, nil
}

// GenerateAll pre-generates triplets for the whole corpus and, when
// withHallucinations is set, hallucination records for every sample.
func (e *Experiment) GenerateAll(ctx context.Context, withHallucinations bool) error {
	e.log.Info("generating corpus triplets", "passages", e.corpus.Len())
	if err := e.triplets.GenerateAll(ctx, e.corpus.IDs()); err != nil {
		return err
	}
	if !withHallucinations {
		return nil
	}
	failed := 0
	for i := range e.qa {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := e.Sample(ctx, i)
		if err != nil {
			return err
		}
		if _, err := e.Hallucination(ctx, r); err != nil {
			failed++
			e.log.Warn("hallucination generation failed", "sample_id", r.ID, "error", err)
		}
	}
	e.log.Info("hallucination records generated", "samples", len(e.qa), "failed", failed)
	return nil
}
