// Package telemetry counts evaluation and model-call events in a private
// Prometheus registry and writes them as a textfile at the end of a run.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"factbench/internal/evaluate"
	"factbench/internal/llm"
	"factbench/internal/metrics"
)

// Run holds the counters of one experiment run. It implements
// evaluate.ReportObserver and llm.UsageTracker.
type Run struct {
	reg *prometheus.Registry

	// Attempts counts evaluation attempts. Labels: run
	Attempts *prometheus.CounterVec
	// Retries counts rejected attempts. Labels: run, reason
	Retries *prometheus.CounterVec
	// Skips counts samples dropped after exhausting retries. Labels: run
	Skips *prometheus.CounterVec
	// Precision and Specificity hold the latest running values. Labels: run
	Precision   *prometheus.GaugeVec
	Specificity *prometheus.GaugeVec
	// Accepted is the number of samples in the running report. Labels: run
	Accepted *prometheus.GaugeVec

	// LLMCalls counts model calls. Labels: task, status (success|error)
	LLMCalls *prometheus.CounterVec
	// LLMTokens counts tokens. Labels: task, type (prompt|completion)
	LLMTokens *prometheus.CounterVec

	usage *llm.InMemoryUsageTracker
}

var (
	_ evaluate.ReportObserver = (*Run)(nil)
	_ llm.UsageTracker        = (*Run)(nil)
)

// New registers the run collectors in a fresh registry.
func New() *Run {
	r := &Run{
		reg: prometheus.NewRegistry(),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factbench_attempts_total",
			Help: "Evaluation attempts.",
		}, []string{"run"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factbench_retries_total",
			Help: "Rejected evaluation attempts by reason.",
		}, []string{"run", "reason"}),
		Skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factbench_skipped_samples_total",
			Help: "Samples skipped after exhausting retries.",
		}, []string{"run"}),
		Precision: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "factbench_precision",
			Help: "Running precision.",
		}, []string{"run"}),
		Specificity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "factbench_specificity",
			Help: "Running specificity of hallucination runs.",
		}, []string{"run"}),
		Accepted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "factbench_accepted_samples",
			Help: "Samples accepted into the running report.",
		}, []string{"run"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factbench_llm_calls_total",
			Help: "Model calls by task and status.",
		}, []string{"task", "status"}),
		LLMTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "factbench_llm_tokens_total",
			Help: "Model tokens by task and type.",
		}, []string{"task", "type"}),
		usage: llm.NewUsageTracker(),
	}
	r.reg.MustRegister(r.Attempts, r.Retries, r.Skips, r.Precision, r.Specificity, r.Accepted, r.LLMCalls, r.LLMTokens)
	return r
}

// Registry exposes the run registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

func (r *Run) Attempt(run string) { r.Attempts.WithLabelValues(run).Inc() }

func (r *Run) Retry(run string, reason error) {
	r.Retries.WithLabelValues(run, evaluate.Reason(reason)).Inc()
}

func (r *Run) Skip(run string) { r.Skips.WithLabelValues(run).Inc() }

func (r *Run) Report(run string, rep *metrics.Report) {
	r.Precision.WithLabelValues(run).Set(rep.Precision)
	r.Accepted.WithLabelValues(run).Set(float64(rep.Samples))
	if rep.HallucinationStats != nil {
		r.Specificity.WithLabelValues(run).Set(rep.Specificity)
	}
}

// Record counts one model call and keeps it for Summary.
func (r *Run) Record(rec llm.UsageRecord) {
	status := "success"
	if rec.Failed {
		status = "error"
	}
	r.LLMCalls.WithLabelValues(rec.Task, status).Inc()
	r.LLMTokens.WithLabelValues(rec.Task, "prompt").Add(float64(rec.PromptTokens))
	r.LLMTokens.WithLabelValues(rec.Task, "completion").Add(float64(rec.CompletionTokens))
	r.usage.Record(rec)
}

// Summary aggregates the recorded model calls.
func (r *Run) Summary() llm.UsageSummary { return r.usage.Summary() }

// WriteFile writes the registry in the Prometheus text format.
func (r *Run) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
