// Package factcheck judges answer triplets against reference triplets.
package factcheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factbench/internal/format"
	"factbench/internal/triplet"
)

// Result maps an answer triplet index to whether the references support it.
// It encodes to JSON with decimal string keys.
type Result map[int]bool

// Precision is the share of supported judgments, 0 for an empty result.
func (r Result) Precision() float64 {
	if len(r) == 0 {
		return 0
	}
	n := 0
	for _, v := range r {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(r))
}

// Indexes returns the judged indexes in order.
func (r Result) Indexes() []int {
	return format.SortedKeys(r)
}

// Covers reports whether r judges exactly the indexes 0..n-1.
func (r Result) Covers(n int) bool {
	if len(r) != n {
		return false
	}
	for k := range r {
		if k < 0 || k >= n {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (r Result) Clone() Result {
	out := make(Result, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AllFalse returns a result judging indexes 0..n-1 unsupported.
func AllFalse(n int) Result {
	out := make(Result, n)
	for i := range n {
		out[i] = false
	}
	return out
}

// Match is a reference triplet that agrees with an answer triplet in
// Fields positions.
type Match struct {
	Reference triplet.Triplet `json:"reference"`
	Fields    int             `json:"fields"`
}

// Details carries checker-specific evidence next to a Result.
type Details struct {
	Matches map[int][]Match `json:"matches,omitempty"`
	Raw     []string        `json:"raw,omitempty"`
}

// Checker judges every answer triplet against segmented references.
// Failures never surface as errors: a result that cannot be trusted is
// returned empty, which callers treat as a failed attempt.
type Checker interface {
	Check(ctx context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet) (Result, Details)
}

// Merge ORs per-segment outputs: a triplet is supported if any segment
// supports it. Outputs must judge the same index set; otherwise the merge
// is invalid and an empty result is returned.
func Merge(outputs []Result, logger *slog.Logger) Result {
	if len(outputs) == 0 {
		return Result{}
	}
	merged := outputs[0].Clone()
	for i, out := range outputs[1:] {
		if !sameKeys(merged, out) {
			if logger != nil {
				logger.Warn("segment judgments cover different triplets, discarding merge",
					"segment", i+1, "want", merged.Indexes(), "got", out.Indexes())
			}
			return Result{}
		}
		for k, v := range out {
			merged[k] = merged[k] || v
		}
	}
	return merged
}

func sameKeys(a, b Result) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// FormatIndexed renders triplets as "i: (s, p, o)" lines.
func FormatIndexed(ts []triplet.Triplet) string {
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = fmt.Sprintf("%d: %s", i, t)
	}
	return strings.Join(lines, "\n")
}

// FormatReference renders triplets as a dash list.
func FormatReference(ts []triplet.Triplet) string {
	lines := make([]string, len(ts))
	for i, t := range ts {
		lines[i] = "- " + t.String()
	}
	return strings.Join(lines, "\n")
}
