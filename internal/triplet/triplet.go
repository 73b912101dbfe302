// Package triplet holds the subject-predicate-object fact type shared by the
// extraction, storage and fact-checking layers.
package triplet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Triplet is an ordered (subject, predicate, object) fact.
// It encodes to JSON as a three element array.
type Triplet [3]string

// Empty is the sentinel produced when a model output cannot be parsed.
var Empty Triplet

// New builds a triplet from its three parts.
func New(subject, predicate, object string) Triplet {
	return Triplet{subject, predicate, object}
}

func (t Triplet) Subject() string   { return t[0] }
func (t Triplet) Predicate() string { return t[1] }
func (t Triplet) Object() string    { return t[2] }

// IsEmpty reports whether every field is blank, i.e. the triplet carries no fact.
func (t Triplet) IsEmpty() bool {
	for _, f := range t {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (t Triplet) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t[0], t[1], t[2])
}

// UnmarshalJSON accepts only arrays of exactly three strings.
func (t *Triplet) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("triplet: want 3 fields, got %d", len(parts))
	}
	copy(t[:], parts)
	return nil
}

// Contains reports whether ts holds a triplet equal to t.
func Contains(ts []Triplet, t Triplet) bool {
	for _, c := range ts {
		if c == t {
			return true
		}
	}
	return false
}

// HasEmpty reports whether any triplet in ts is the empty sentinel.
func HasEmpty(ts []Triplet) bool {
	for _, t := range ts {
		if t.IsEmpty() {
			return true
		}
	}
	return false
}

// Flatten concatenates segments in order.
func Flatten(segments [][]Triplet) []Triplet {
	n := 0
	for _, s := range segments {
		n += len(s)
	}
	out := make([]Triplet, 0, n)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
