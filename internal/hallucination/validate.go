package hallucination

import (
	"fmt"
	"strings"
)

// ValidationError explains why a record cannot be used.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid hallucination record: " + e.Reason
}

// Validate checks that r carries usable ground truth.
func Validate(r *Record) error {
	switch {
	case r == nil:
		return &ValidationError{Reason: "missing record"}
	case len(r.AnswerTriplets) == 0:
		return &ValidationError{Reason: "no answer triplets"}
	case len(r.HlcntnTripletIndex) != len(r.AnswerTriplets):
		return &ValidationError{Reason: fmt.Sprintf("index length %d != %d answer triplets", len(r.HlcntnTripletIndex), len(r.AnswerTriplets))}
	case r.NumHallucinated() == 0:
		return &ValidationError{Reason: "no hallucinated triplet"}
	case strings.TrimSpace(r.HlcntnPart) == "":
		return &ValidationError{Reason: "empty hallucinated part"}
	case !strings.Contains(r.GeneratedHlcntnAnswer, r.HlcntnPart):
		return &ValidationError{Reason: "hallucinated part not found in hallucinated answer"}
	}
	return nil
}
