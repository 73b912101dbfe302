package format_test

import (
	"strings"
	"testing"
	"time"

	"factbench/internal/format"
)

func TestTable_Modes(t *testing.T) {
	tests := []struct {
		name string
		mode format.Mode
		want []string
		not  []string
	}{
		{
			name: "ascii",
			mode: format.ASCII,
			want: []string{"precision", "0.8750", "───"},
			not:  []string{"| ---"},
		},
		{
			name: "markdown",
			mode: format.Markdown,
			want: []string{"| Metric", "---", "precision", "0.8750"},
			not:  []string{"───"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl := format.NewTable(tc.mode, "Metric", "Value").Right(2)
			tbl.Row("samples", 8)
			tbl.Row("precision", "0.8750")
			out := tbl.String()
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("missing %q in:\n%s", w, out)
				}
			}
			for _, n := range tc.not {
				if strings.Contains(out, n) {
					t.Errorf("unexpected %q in:\n%s", n, out)
				}
			}
		})
	}
}

func TestTable_RightAlignPadsLeft(t *testing.T) {
	tbl := format.NewTable(format.ASCII, "Task", "Calls").Right(2).Center(1)
	tbl.Row("fact_checker", 7)
	tbl.Row("triplet_generator", 12345)
	out := tbl.String()
	if !strings.Contains(out, "     7 ") {
		t.Errorf("calls column not right-aligned:\n%s", out)
	}
}

func TestTable_Footer(t *testing.T) {
	tbl := format.NewTable(format.Markdown, "Task", "Calls")
	tbl.Row("answer_generator", 100)
	tbl.Row("fact_checker", 200)
	tbl.Footer("TOTAL", 300)
	out := tbl.String()
	for _, w := range []string{"TOTAL", "300"} {
		if !strings.Contains(out, w) {
			t.Errorf("missing footer %q in:\n%s", w, out)
		}
	}
}

func TestSection(t *testing.T) {
	tbl := format.NewTable(format.Markdown, "A")
	tbl.Row("x")
	got := format.Section("Original", tbl)
	if !strings.HasPrefix(got, "=== Original ===\n| A") {
		t.Errorf("Section = %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("Section should end with a newline: %q", got)
	}
	if got := format.Section("", tbl); strings.Contains(got, "===") {
		t.Errorf("untitled Section has a title line: %q", got)
	}
}

func TestFmtTokens(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{500, "500"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{20000, "20.0K"},
		{1000000, "1.0M"},
		{2500000, "2.5M"},
	}
	for _, tc := range tests {
		got := format.FmtTokens(tc.in)
		if got != tc.want {
			t.Errorf("FmtTokens(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m 0s"},
		{90 * time.Second, "1m 30s"},
		{5*time.Minute + 15*time.Second, "5m 15s"},
	}
	for _, tc := range tests {
		got := format.FmtDuration(tc.in)
		if got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"ab", 3, "ab"},
		{"abcdef", 3, "abc"},
		{"αβγδεζηθ", 6, "αβγ..."},
	}
	for _, tc := range tests {
		got := format.Truncate(tc.in, tc.maxLen)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

func TestBoolMark(t *testing.T) {
	if format.BoolMark(true) != "✓" {
		t.Error("BoolMark(true) should be ✓")
	}
	if format.BoolMark(false) != "✗" {
		t.Error("BoolMark(false) should be ✗")
	}
}

func TestFmtRatio(t *testing.T) {
	v := 0.5
	if got := format.FmtRatio(&v); got != "0.5000" {
		t.Errorf("FmtRatio(0.5) = %q", got)
	}
	if got := format.FmtRatio(nil); got != "n/a" {
		t.Errorf("FmtRatio(nil) = %q", got)
	}
}

func TestSortedKeys(t *testing.T) {
	got := format.SortedKeys(map[string]int{"b": 1, "a": 2, "c": 3})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("SortedKeys = %v", got)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]format.Mode{"": format.ASCII, "md": format.Markdown, "markdown": format.Markdown} {
		got, err := format.ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := format.ParseMode("html"); err == nil {
		t.Error("expected error for html")
	}
}
