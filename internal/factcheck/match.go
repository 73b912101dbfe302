package factcheck

import (
	"context"

	"factbench/internal/triplet"
)

// ExactMatch supports a triplet only when the flattened references contain
// it verbatim.
type ExactMatch struct{}

func (ExactMatch) Check(_ context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet) (Result, Details) {
	flat := triplet.Flatten(reference)
	out := make(Result, len(answer))
	for i, t := range answer {
		out[i] = triplet.Contains(flat, t)
	}
	return out, Details{}
}

// DefaultPartialThreshold is the number of agreeing fields PartialMatch
// requires when none is configured.
const DefaultPartialThreshold = 2

// PartialMatch supports a triplet when some reference triplet agrees with
// it in at least Threshold positions.
type PartialMatch struct {
	Threshold int
}

func (m PartialMatch) Check(_ context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet) (Result, Details) {
	threshold := m.Threshold
	if threshold <= 0 {
		threshold = DefaultPartialThreshold
	}
	flat := triplet.Flatten(reference)
	out := make(Result, len(answer))
	matches := make(map[int][]Match)
	for i, t := range answer {
		for _, ref := range flat {
			n := agreeingFields(t, ref)
			if n >= threshold {
				matches[i] = append(matches[i], Match{Reference: ref, Fields: n})
			}
		}
		out[i] = len(matches[i]) > 0
	}
	return out, Details{Matches: matches}
}

func agreeingFields(a, b triplet.Triplet) int {
	n := 0
	for i := range a {
		if a[i] == b[i] {
			n++
		}
	}
	return n
}
