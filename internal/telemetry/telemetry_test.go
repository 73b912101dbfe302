package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"factbench/internal/evaluate"
	"factbench/internal/llm"
	"factbench/internal/metrics"
)

func TestRun_Observer(t *testing.T) {
	r := New()
	r.Attempt(evaluate.RunOriginal)
	r.Attempt(evaluate.RunOriginal)
	r.Retry(evaluate.RunOriginal, &evaluate.AttemptError{Attempt: 1, Err: evaluate.ErrLengthMismatch})
	r.Skip(evaluate.RunHallucination)
	r.Report(evaluate.RunHallucination, &metrics.Report{Samples: 3, Precision: 0.75, HallucinationStats: &metrics.HallucinationStats{Specificity: 0.5}})

	if got := testutil.ToFloat64(r.Attempts.WithLabelValues("original")); got != 2 {
		t.Errorf("attempts = %v", got)
	}
	if got := testutil.ToFloat64(r.Retries.WithLabelValues("original", "length_mismatch")); got != 1 {
		t.Errorf("retries = %v", got)
	}
	expected := `
		# HELP factbench_specificity Running specificity of hallucination runs.
		# TYPE factbench_specificity gauge
		factbench_specificity{run="hlcntn"} 0.5
	`
	if err := testutil.CollectAndCompare(r.Specificity, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected specificity: %v", err)
	}
}

func TestRun_UsageAndTextfile(t *testing.T) {
	r := New()
	r.Record(llm.UsageRecord{Task: "fact_checker", PromptTokens: 100, CompletionTokens: 20})
	r.Record(llm.UsageRecord{Task: "fact_checker", Failed: true})

	if got := testutil.ToFloat64(r.LLMCalls.WithLabelValues("fact_checker", "error")); got != 1 {
		t.Errorf("failed calls = %v", got)
	}
	if s := r.Summary(); s.TotalPromptTokens != 100 || s.PerTask["fact_checker"].Calls != 2 {
		t.Errorf("summary = %+v", s)
	}

	path := filepath.Join(t.TempDir(), "run.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `factbench_llm_tokens_total{task="fact_checker",type="prompt"} 100`) {
		t.Errorf("textfile missing token counter:\n%s", data)
	}
}
