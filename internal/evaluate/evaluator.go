package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"factbench/internal/dataset"
	"factbench/internal/demo"
	"factbench/internal/display"
	"factbench/internal/hallucination"
	"factbench/internal/logging"
	"factbench/internal/pipeline"
	"factbench/internal/results"
)

// Run names used in logs and telemetry.
const (
	RunOriginal      = results.RunOriginal
	RunHallucination = results.RunHallucination
)

// Samples is the dataset an Evaluator reads from.
type Samples interface {
	Len() int
	Sample(ctx context.Context, idx int) (dataset.QARecord, error)
	Hallucination(ctx context.Context, r dataset.QARecord) (*hallucination.Record, error)
}

// Observer is notified of evaluation progress. Methods must not block.
type Observer interface {
	Attempt(run string)
	Retry(run string, reason error)
	Skip(run string)
}

type nopObserver struct{}

func (nopObserver) Attempt(string)      {}
func (nopObserver) Retry(string, error) {}
func (nopObserver) Skip(string)         {}

// Outcome is an accepted sample evaluation.
type Outcome struct {
	Row      dataset.QARecord
	Output   pipeline.Output
	Record   *hallucination.Record // hallucination run only
	Attempts int
}

// Evaluator evaluates one sample at a time with bounded retries.
type Evaluator struct {
	system      *pipeline.System
	data        Samples
	maxAttempts int
	obs         Observer
	log         *slog.Logger
}

// NewEvaluator returns an evaluator making at most maxAttempts attempts
// per sample. obs and logger may be nil.
func NewEvaluator(system *pipeline.System, data Samples, maxAttempts int, obs Observer, logger *slog.Logger) *Evaluator {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Evaluator{
		system:      system,
		data:        data,
		maxAttempts: maxAttempts,
		obs:         obs,
		log:         logging.OrDiscard(logger),
	}
}

// Original evaluates sample idx on a freshly generated answer. It returns
// nil when every attempt was rejected or ctx ended.
func (e *Evaluator) Original(ctx context.Context, idx int) *Outcome {
	return e.loop(ctx, RunOriginal, idx, func(ctx context.Context) (*Outcome, error) {
		row, err := e.data.Sample(ctx, idx)
		if err != nil {
			return nil, err
		}
		ctx = demo.WithSampleID(ctx, row.ID)
		out, err := e.system.Forward(ctx, row)
		if err != nil {
			return nil, err
		}
		if err := CheckOutput(row, out); err != nil {
			return nil, err
		}
		return &Outcome{Row: row, Output: out}, nil
	})
}

// Hallucination evaluates sample idx on its hallucinated answer.
func (e *Evaluator) Hallucination(ctx context.Context, idx int) *Outcome {
	return e.loop(ctx, RunHallucination, idx, func(ctx context.Context) (*Outcome, error) {
		row, err := e.data.Sample(ctx, idx)
		if err != nil {
			return nil, err
		}
		ctx = demo.WithSampleID(ctx, row.ID)
		rec, err := e.data.Hallucination(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoHallucination, err)
		}
		out := e.system.HallucinationForward(ctx, row, rec)
		if err := CheckHallucinationOutput(row, out, rec); err != nil {
			return nil, err
		}
		return &Outcome{Row: row, Output: out, Record: rec}, nil
	})
}

func (e *Evaluator) loop(ctx context.Context, run string, idx int, attempt func(context.Context) (*Outcome, error)) *Outcome {
	var last error
	for n := 1; n <= e.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			e.log.Warn("evaluation cancelled", "run", run, "index", idx, "error", err)
			return nil
		}
		e.obs.Attempt(run)
		out, err := attempt(ctx)
		if err == nil {
			out.Attempts = n
			return out
		}
		last = &AttemptError{Attempt: n, Err: err}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		e.obs.Retry(run, err)
		e.log.Warn("attempt rejected, retrying", "run", run, "index", idx, "attempt", n,
			"reason", display.Reason(Reason(err)), "error", err)
	}
	e.obs.Skip(run)
	e.log.Warn("sample skipped", "run", run, "index", idx, "attempts", e.maxAttempts, "last_error", last)
	return nil
}
