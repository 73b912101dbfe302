package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"factbench/internal/datastore"
	"factbench/internal/extract"
	"factbench/internal/hallucination"
	"factbench/internal/triplet"
	"factbench/internal/tripletstore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCorpus(t *testing.T) {
	arr := writeFile(t, "corpus.json", `[
		{"id": 3, "passage": "BRCA1 is a\ntumor suppressor."},
		{"id": 1, "passage": "nan"},
		{"id": 2, "passage": "TP53 encodes p53."}
	]`)
	c, err := LoadCorpus(arr)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 3}, c.IDs()); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if text, _ := c.Passage(3); text != "BRCA1 is a tumor suppressor." {
		t.Errorf("passage 3 = %q", text)
	}
	if _, ok := c.Passage(1); ok {
		t.Error("nan passage should be dropped")
	}

	obj := writeFile(t, "corpus_map.json", `{"10": "a", "11": "b"}`)
	c, err = LoadCorpus(obj)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestLoadQA_Filters(t *testing.T) {
	corpus := NewCorpus([]Passage{{ID: 1, Text: "p1"}, {ID: 2, Text: "p2"}})
	path := writeFile(t, "qa.json", `[
		{"id": 100, "question": "Is BRCA1 a tumor suppressor?", "answer": "yes", "relevant_passage_ids": "[1, 5]"},
		{"id": 101, "question": "What does TP53 encode?", "answer": "p53", "relevant_passage_ids": [2]},
		{"id": 102, "question": "What is brca2?", "answer": "gene", "relevant_passage_ids": [7, 8]}
	]`)

	all, err := LoadQA(path, "all", corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2 (record without corpus passages dropped)", len(all))
	}
	if diff := cmp.Diff(PassageIDs{1}, all[0].RelevantPassageIDs); diff != "" {
		t.Errorf("passage ids not filtered to corpus (-want +got):\n%s", diff)
	}

	brca, err := LoadQA(path, "brca", corpus)
	if err != nil {
		t.Fatal(err)
	}
	if len(brca) != 1 || brca[0].ID != 100 {
		t.Errorf("keyword filter = %+v", brca)
	}
}

type stubInjector struct {
	calls int
	rec   *hallucination.Record
	err   error
}

func (s *stubInjector) Inject(context.Context, hallucination.Source, extract.Generator) (*hallucination.Record, error) {
	s.calls++
	return s.rec, s.err
}

func newExperiment(t *testing.T, inj hallucination.Injector, hlDir string) *Experiment {
	t.Helper()
	corpus := NewCorpus([]Passage{{ID: 1, Text: "p1"}, {ID: 2, Text: "p2"}})
	gen := extract.GeneratorFunc(func(_ context.Context, text string) ([]triplet.Triplet, error) {
		return []triplet.Triplet{triplet.New(text, "is", "passage")}, nil
	})
	store := tripletstore.New(corpus, gen, tripletstore.Options{MaxLength: 1})
	qa := []QARecord{{ID: 100, Question: "q", RelevantPassageIDs: PassageIDs{1, 2}}}
	return NewExperiment(qa, corpus, store, ExperimentOptions{
		Mode:               tripletstore.Segmented,
		Hallucinations:     datastore.NewFileStore[hallucination.Record](hlDir),
		Injector:           inj,
		Generator:          gen,
		SaveHallucinations: true,
	})
}

func TestExperiment_Sample(t *testing.T) {
	e := newExperiment(t, nil, t.TempDir())
	r, err := e.Sample(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, r.ReferenceDocuments); diff != "" {
		t.Errorf("documents (-want +got):\n%s", diff)
	}
	want := [][]triplet.Triplet{{triplet.New("p1", "is", "passage")}, {triplet.New("p2", "is", "passage")}}
	if diff := cmp.Diff(want, r.ReferenceTriplets); diff != "" {
		t.Errorf("reference triplets (-want +got):\n%s", diff)
	}
	if _, err := e.Sample(context.Background(), 1); err == nil {
		t.Error("out of range sample should fail")
	}
}

func TestExperiment_HallucinationCachesValidRecords(t *testing.T) {
	good := &hallucination.Record{
		GeneratedAnswer:       "x causes y",
		GeneratedHlcntnAnswer: "x causes y",
		AnswerTriplets:        []triplet.Triplet{triplet.New("x", "causes", "y")},
		HlcntnTripletIndex:    []bool{true},
		HlcntnPart:            "causes y",
	}
	dir := filepath.Join(t.TempDir(), "hlcntn")
	inj := &stubInjector{rec: good}
	e := newExperiment(t, inj, dir)
	ctx := context.Background()
	r, _ := e.Sample(ctx, 0)

	for i := 0; i < 2; i++ {
		got, err := e.Hallucination(ctx, r)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(good, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	}
	if inj.calls != 1 {
		t.Errorf("injector calls = %d, want 1", inj.calls)
	}

	// A new experiment over the same directory reuses the saved record.
	inj2 := &stubInjector{err: errors.New("should not be called")}
	e2 := newExperiment(t, inj2, dir)
	if err := e2.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e2.Hallucination(ctx, r); err != nil || inj2.calls != 0 {
		t.Errorf("persisted record not reused: err=%v calls=%d", err, inj2.calls)
	}
}

func TestExperiment_InvalidHallucinationNotCached(t *testing.T) {
	bad := &hallucination.Record{AnswerTriplets: []triplet.Triplet{triplet.New("a", "b", "c")}, HlcntnTripletIndex: []bool{false}}
	dir := filepath.Join(t.TempDir(), "hlcntn")
	inj := &stubInjector{rec: bad}
	e := newExperiment(t, inj, dir)
	ctx := context.Background()
	r, _ := e.Sample(ctx, 0)

	var ve *hallucination.ValidationError
	if _, err := e.Hallucination(ctx, r); !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
	e.Hallucination(ctx, r)
	if inj.calls != 2 {
		t.Errorf("invalid record should be regenerated: calls = %d", inj.calls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("invalid record should not be persisted")
	}
}
