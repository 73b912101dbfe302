package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func poolOf(task string, ids ...int) *Pool {
	set := map[int]Demo{}
	for _, id := range ids {
		set[id] = Demo{Text: fmt.Sprintf("demo-%d", id)}
	}
	return NewPool(map[string]map[int]Demo{task: set}, 1)
}

func texts(ds []Demo) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Text
	}
	return out
}

func TestSample_NeverReturnsExcluded(t *testing.T) {
	p := poolOf(TaskFactChecker, 1, 2, 3, 4, 5)
	for _, mode := range []Sampling{SamplingRandom, SamplingAll} {
		for n := 1; n <= 8; n++ {
			for trial := 0; trial < 20; trial++ {
				for _, d := range p.Sample(TaskFactChecker, 3, n, mode) {
					if d.Text == "demo-3" {
						t.Fatalf("mode %s n=%d returned the excluded demonstration", mode, n)
					}
				}
			}
		}
	}
}

func TestSample_AllIsDeterministic(t *testing.T) {
	p := poolOf(TaskFactChecker, 9, 2, 5)
	got := texts(p.Sample(TaskFactChecker, 5, 1, SamplingAll))
	if diff := cmp.Diff([]string{"demo-2", "demo-9"}, got); diff != "" {
		t.Errorf("all-mode sample (-want +got):\n%s", diff)
	}
}

func TestSample_RandomCounts(t *testing.T) {
	p := poolOf(TaskTripletGenerator, 1, 2, 3)

	got := p.Sample(TaskTripletGenerator, -1, 2, SamplingRandom)
	if len(got) != 2 || got[0].Text == got[1].Text {
		t.Errorf("without replacement: %v", texts(got))
	}
	// More requested than available: drawn with replacement.
	if got := p.Sample(TaskTripletGenerator, -1, 7, SamplingRandom); len(got) != 7 {
		t.Errorf("with replacement: len = %d, want 7", len(got))
	}
	if got := p.Sample(TaskTripletGenerator, -1, 0, SamplingRandom); got != nil {
		t.Errorf("n=0: %v", texts(got))
	}
	if got := p.Sample("unknown_task", -1, 3, SamplingRandom); got != nil {
		t.Errorf("unknown task: %v", texts(got))
	}
	if got := poolOf(TaskFactChecker, 4).Sample(TaskFactChecker, 4, 3, SamplingRandom); got != nil {
		t.Errorf("only candidate excluded: %v", texts(got))
	}
}

func TestShots_UsesSampleIDFromContext(t *testing.T) {
	s := &Shots{Pool: poolOf(TaskFactChecker, 1, 2), Task: TaskFactChecker, N: 5, Mode: SamplingAll}
	block := s.Block(WithSampleID(context.Background(), 2))
	if strings.Contains(block, "demo-2") || !strings.Contains(block, "demo-1") {
		t.Errorf("block = %q", block)
	}

	var none *Shots
	if none.Block(context.Background()) != "" {
		t.Error("nil shots should render nothing")
	}
}

func TestFormat(t *testing.T) {
	if Format(nil) != "" {
		t.Error("empty demos should render empty string")
	}
	got := Format([]Demo{{Text: "a"}, {Text: "b\n"}})
	want := "[BEGIN FEW-SHOT-EXAMPLES]\n" +
		"<Example 1 Input/Output Pair>\na\n\n" +
		"<Example 2 Input/Output Pair>\nb\n\n" +
		"[END FEW-SHOT-EXAMPLES]"
	if got != want {
		t.Errorf("Format =\n%q\nwant\n%q", got, want)
	}
}

func TestStripInstructions(t *testing.T) {
	prompt := "Reference triplets:\n- (a, b, c)\n\nTask: decide\n- rule"
	if got := StripInstructions(prompt); got != "Reference triplets:\n- (a, b, c)" {
		t.Errorf("StripInstructions = %q", got)
	}
}

func TestBuildAndLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	d, err := Build("Text:\naspirin inhibits COX-1\n\nTask: extract", map[string]string{"input_text": "aspirin inhibits COX-1"},
		[][]string{{"aspirin", "inhibits", "COX-1"}})
	if err != nil {
		t.Fatal(err)
	}
	wantText := "Input:\nText:\naspirin inhibits COX-1\nOutput:\n[FINAL ANSWER] [[\"aspirin\",\"inhibits\",\"COX-1\"]]\n\n"
	if d.Text != wantText {
		t.Errorf("Text =\n%q\nwant\n%q", d.Text, wantText)
	}

	if err := (Writer{Dir: dir}).Save(ctx, TaskTripletGenerator, 12, d); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPool(ctx, dir, Tasks, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len(TaskTripletGenerator) != 1 || p.Len(TaskFactChecker) != 0 {
		t.Errorf("pool sizes = %d/%d", p.Len(TaskTripletGenerator), p.Len(TaskFactChecker))
	}
	got := p.Sample(TaskTripletGenerator, -1, 1, SamplingRandom)
	if len(got) != 1 || got[0].Text != d.Text {
		t.Fatalf("loaded demo = %+v", got)
	}
	var out [][]string
	if err := json.Unmarshal(got[0].Output, &out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]string{{"aspirin", "inhibits", "COX-1"}}, out); diff != "" {
		t.Errorf("loaded output (-want +got):\n%s", diff)
	}
}

func TestParseSampling(t *testing.T) {
	if m, err := ParseSampling("all"); err != nil || m != SamplingAll {
		t.Errorf("ParseSampling(all) = %v, %v", m, err)
	}
	if _, err := ParseSampling("weighted"); err == nil {
		t.Error("expected error")
	}
}
