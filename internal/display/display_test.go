package display

import "testing"

func TestRun(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"original", "Original"},
		{"hlcntn", "Hallucination"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Run(tc.code); got != tc.want {
			t.Errorf("Run(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestTask(t *testing.T) {
	if got := Task("fact_checker"); got != "Fact Checker" {
		t.Errorf("got %q", got)
	}
	if got := TaskWithCode("triplet_generator"); got != "Triplet Generator (triplet_generator)" {
		t.Errorf("got %q", got)
	}
	if got := TaskWithCode("unknown"); got != "unknown" {
		t.Errorf("got %q", got)
	}
}

func TestModel(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"exact_match", "Exact Match"},
		{"partial_match", "Partial Match"},
		{"base_llm", "LLM"},
		{"llm_n_shot_split", "LLM with demonstrations, one triplet per call"},
		{"oracle", "oracle"},
	}
	for _, tc := range cases {
		if got := Model(tc.code); got != tc.want {
			t.Errorf("Model(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
	if got := ModelWithCode("exact_match"); got != "Exact Match (exact_match)" {
		t.Errorf("got %q", got)
	}
}

func TestReason(t *testing.T) {
	if got := Reason("length_mismatch"); got != "Judgment count mismatch" {
		t.Errorf("got %q", got)
	}
	if got := Reason("new_reason"); got != "new_reason" {
		t.Errorf("got %q", got)
	}
}
