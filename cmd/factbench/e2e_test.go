package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"factbench/internal/metrics"
	"factbench/internal/pipeline"
)

// fakeOpenAI serves chat completions that always answer with the same
// content and counts the requests.
func fakeOpenAI(t *testing.T, content string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "fake",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func modelConfig(baseURL string) string {
	return "model:\n" +
		"  llm:\n" +
		"    provider: openai\n" +
		"    base_url: " + baseURL + "/v1\n" +
		"    request_max_try: 1\n" +
		"  fact_checker:\n" +
		"    model_name: exact_match\n"
}

const tripletAnswer = `[FINAL ANSWER] [["tp53", "encodes", "p53"]]`

func TestCompare_EndToEnd(t *testing.T) {
	srv, calls := fakeOpenAI(t, tripletAnswer)
	dir, cfg := setupData(t, modelConfig(srv.URL))

	args := append([]string{"compare"}, baseArgs(cfg)...)
	args = append(args, "-e", "cmp", "--json", "--answer", "TP53 encodes p53.", "--reference", "TP53 encodes the p53 protein.")
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("compare: %v\n%s", err, out)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("model calls = %d, want 2 (one extraction per text)", got)
	}

	var m pipeline.TextMatch
	data, err := os.ReadFile(filepath.Join(dir, "results", "cmp", "text_match.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.FactCheck.Precision() != 1 {
		t.Errorf("precision = %v, want 1", m.FactCheck.Precision())
	}
	if len(m.Unsupported) != 0 {
		t.Errorf("unsupported = %v, want none", m.Unsupported)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	srv, _ := fakeOpenAI(t, tripletAnswer)
	dir, cfg := setupData(t, modelConfig(srv.URL))

	args := append([]string{"run"}, baseArgs(cfg)...)
	args = append(args, "-e", "e2e", "--evaluate-hlcntn=false", "--num-test-samples", "1")
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "=== Original ===") {
		t.Errorf("output missing original report:\n%s", out)
	}
	if strings.Contains(out, "Hallucination") {
		t.Errorf("hallucination run should be disabled:\n%s", out)
	}

	expDir := filepath.Join(dir, "results", "e2e")
	var names []string
	entries, err := os.ReadDir(expDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"commit_info.json", "config.json", "log.txt", "metrics.json", "predictions.json", "prompt_bank.json", "run.prom"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("experiment files (-want +got):\n%s", diff)
	}

	runLog, err := os.ReadFile(filepath.Join(expDir, "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(runLog), "experiment directory created") {
		t.Errorf("results writer lines missing from log.txt:\n%s", runLog)
	}

	var report metrics.Report
	data, err := os.ReadFile(filepath.Join(expDir, "metrics.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Samples != 1 || report.Precision != 1 {
		t.Errorf("report = %+v, want 1 sample at precision 1", report)
	}

	// Reference triplets of the evaluated passage are cached for the next run.
	if _, err := os.Stat(filepath.Join(dir, "triplets", "1.json")); err != nil {
		t.Errorf("passage triplets not cached: %v", err)
	}
}
