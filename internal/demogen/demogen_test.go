package demogen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"factbench/internal/datastore"
	"factbench/internal/demo"
	"factbench/internal/factcheck"
	"factbench/internal/metrics"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

var (
	t1 = triplet.New("brca1", "suppresses", "tumors")
	t2 = triplet.New("brca1", "repairs", "dna")
)

func predictions() []metrics.Prediction {
	return []metrics.Prediction{
		{Idx: 11, GeneratedAnswer: "BRCA1 suppresses tumors and repairs DNA.", AnswerTriplets: []triplet.Triplet{t1, t2},
			FactCheck: factcheck.Result{0: true, 1: true}, Precision: 1, ReferenceTriplets: [][]triplet.Triplet{{t1}, {t2}}},
		{Idx: 12, AnswerTriplets: []triplet.Triplet{t1}, FactCheck: factcheck.Result{0: true}, Precision: 1},
		{Idx: 13, AnswerTriplets: []triplet.Triplet{t1, t2}, FactCheck: factcheck.Result{0: true, 1: false}, Precision: 0.5},
	}
}

func TestFromPredictions_FullScoreOnly(t *testing.T) {
	samples, err := FromPredictions(predictions(), demo.TaskFactChecker)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 || samples[0].ID != 11 {
		t.Fatalf("samples = %+v, want only idx 11", samples)
	}
	if _, err := FromPredictions(predictions(), demo.TaskHallucinationData); err == nil {
		t.Error("hallucination demos cannot come from predictions")
	}
}

func TestGenerate_FactChecker(t *testing.T) {
	samples, err := FromPredictions(predictions(), demo.TaskFactChecker)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	g := New(prompt.Default(), &demo.Writer{Dir: dir}, nil)
	demos, err := g.Generate(context.Background(), demo.TaskFactChecker, samples)
	if err != nil {
		t.Fatal(err)
	}
	text := demos[0].Text
	if !strings.HasPrefix(text, "Input:\nReference triplets:") {
		t.Errorf("text should start with the prompt data:\n%s", text)
	}
	if strings.Contains(text, "Task:") {
		t.Errorf("instructions not stripped:\n%s", text)
	}
	if !strings.Contains(text, `[FINAL ANSWER] {"0":true,"1":true}`) {
		t.Errorf("output missing:\n%s", text)
	}

	var saved demo.Demo
	if err := datastore.ReadJSON(filepath.Join(dir, demo.TaskFactChecker, "11.json"), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Text != text {
		t.Error("saved demonstration differs from returned one")
	}
}

func TestLoadManual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.json")
	content := `[
		{"input": {"input_text": "TP53 encodes p53."}, "output": [["TP53", "encodes", "p53"]]},
		{"idx": 40, "input": {"input_text": "x"}, "output": []}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	samples, err := LoadManual(path)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, s := range samples {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]int{0, 40}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}

	demos, err := New(prompt.Default(), nil, nil).Generate(context.Background(), demo.TaskTripletGenerator, samples[:1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(demos[0].Text, "TP53 encodes p53.") {
		t.Errorf("text = %q", demos[0].Text)
	}
}
