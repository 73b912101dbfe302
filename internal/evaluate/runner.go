package evaluate

import (
	"context"
	"log/slog"

	"factbench/internal/demo"
	"factbench/internal/logging"
	"factbench/internal/metrics"
	"factbench/internal/pipeline"
)

// Sink persists the cumulative state of a run after every sample.
type Sink interface {
	Save(run string, report *metrics.Report, preds []metrics.Prediction) error
}

// ReportObserver additionally receives the running report.
type ReportObserver interface {
	Observer
	Report(run string, r *metrics.Report)
}

// RunOptions limits and tunes an experiment.
type RunOptions struct {
	// NumSamples caps the evaluated positions; 0 means the whole dataset.
	NumSamples int
	// SampleIdx, when set, evaluates only that position.
	SampleIdx *int
	// Reprompt enables the second pass on low-precision samples.
	Reprompt bool
}

// Runner runs the original and hallucination experiments.
type Runner struct {
	eval   *Evaluator
	system *pipeline.System
	sink   Sink
	opts   RunOptions
	log    *slog.Logger
}

// NewRunner returns a runner; sink may be nil to skip persistence.
func NewRunner(eval *Evaluator, system *pipeline.System, sink Sink, opts RunOptions, logger *slog.Logger) *Runner {
	return &Runner{eval: eval, system: system, sink: sink, opts: opts, log: logging.OrDiscard(logger)}
}

// Indexes returns the dataset positions the runner evaluates.
func (r *Runner) Indexes() []int {
	n := r.eval.data.Len()
	if r.opts.NumSamples > 0 && r.opts.NumSamples < n {
		n = r.opts.NumSamples
	}
	if r.opts.SampleIdx != nil {
		if i := *r.opts.SampleIdx; i >= 0 && i < n {
			return []int{i}
		}
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// RunOriginal evaluates generated answers. The returned report is nil when
// no sample was accepted.
func (r *Runner) RunOriginal(ctx context.Context) (*metrics.Report, []metrics.Prediction, error) {
	return r.run(ctx, RunOriginal, r.eval.Original)
}

// RunHallucination evaluates hallucinated answers.
func (r *Runner) RunHallucination(ctx context.Context) (*metrics.Report, []metrics.Prediction, error) {
	return r.run(ctx, RunHallucination, r.eval.Hallucination)
}

func (r *Runner) run(ctx context.Context, run string, evaluate func(context.Context, int) *Outcome) (*metrics.Report, []metrics.Prediction, error) {
	idx := r.Indexes()
	r.log.Info("experiment started", "run", run, "samples", len(idx), "reprompt", r.opts.Reprompt)

	var (
		preds  []metrics.Prediction
		report *metrics.Report
	)
	for n, i := range idx {
		if err := ctx.Err(); err != nil {
			return report, preds, err
		}
		r.log.Info("evaluating sample", "run", run, "index", i, "progress", n+1, "of", len(idx))
		o := evaluate(ctx, i)
		if o == nil {
			continue
		}
		p := r.prediction(ctx, o)
		preds = append(preds, p)
		report = metrics.Compute(preds)
		r.logSample(run, o, p, report)

		if ro, ok := r.eval.obs.(ReportObserver); ok {
			ro.Report(run, report)
		}
		if r.sink != nil {
			if err := r.sink.Save(run, report, preds); err != nil {
				return report, preds, err
			}
		}
	}
	r.log.Info("experiment ended", "run", run, "accepted", len(preds), "of", len(idx))
	return report, preds, nil
}

func (r *Runner) prediction(ctx context.Context, o *Outcome) metrics.Prediction {
	p := metrics.Prediction{
		Idx:                o.Row.ID,
		Question:           o.Row.Question,
		GeneratedAnswer:    o.Output.GeneratedAnswer,
		AnswerTriplets:     o.Output.AnswerTriplets,
		FactCheck:          o.Output.FactCheck,
		Precision:          o.Output.FactCheck.Precision(),
		ReferenceDocuments: o.Row.ReferenceDocuments,
		ReferenceTriplets:  o.Row.ReferenceTriplets,
	}
	if rec := o.Record; rec != nil {
		p.GeneratedNonHlcntnAnswer = rec.GeneratedNonHlcntnAnswer
		p.GeneratedHlcntnAnswer = rec.GeneratedHlcntnAnswer
		p.NonHlcntnTriplets = rec.NonHlcntnTriplets
		p.HlcntnTripletIndex = rec.HlcntnTripletIndex
		for i, t := range rec.AnswerTriplets {
			if rec.HlcntnTripletIndex[i] {
				p.HlcntnTriplets = append(p.HlcntnTriplets, t)
			}
		}
	}
	if r.opts.Reprompt && r.system.ShouldReprompt(o.Output) {
		p.SetReprompt(r.system.Reprompt(demo.WithSampleID(ctx, o.Row.ID), o.Row, o.Output))
		if p.RepromptPrecision != nil {
			r.log.Info("reprompted", "sample_id", o.Row.ID, "precision", p.Precision, "reprompt_precision", *p.RepromptPrecision)
		}
	}
	return p
}

func (r *Runner) logSample(run string, o *Outcome, p metrics.Prediction, report *metrics.Report) {
	attrs := []any{
		"run", run,
		"sample_id", o.Row.ID,
		"question", o.Row.Question,
		"answer", o.Output.GeneratedAnswer,
		"answer_triplets", len(p.AnswerTriplets),
		"judgments", p.FactCheck,
		"attempts", o.Attempts,
	}
	if o.Record != nil {
		attrs = append(attrs, "hallucinated", o.Record.NumHallucinated(), "hallucinated_part", o.Record.HlcntnPart)
	}
	r.log.Info("sample accepted", attrs...)
	r.log.Debug("sample detail", "sample_id", o.Row.ID, "reference_documents", p.ReferenceDocuments, "answer_triplets", p.AnswerTriplets)

	progress := []any{
		"run", run,
		"precision", report.Precision,
		"non_hlcntn_supported", report.NumNonHlcntnTripletsCorrectlyPred,
		"non_hlcntn_total", report.NumNonHlcntnTriplets,
	}
	if h := report.HallucinationStats; h != nil {
		progress = append(progress,
			"specificity", h.Specificity,
			"hlcntn_caught", h.NumHlcntnTripletsCorrectlyPred,
			"hlcntn_total", h.NumHlcntnTriplets)
	}
	r.log.Info("running metrics", progress...)
}
