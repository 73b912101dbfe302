// Package evaluate drives the fact-checking system over an experiment
// dataset: bounded retries per sample, reprompting, metric aggregation and
// result persistence.
package evaluate

import (
	"errors"
	"fmt"

	"factbench/internal/answer"
	"factbench/internal/dataset"
	"factbench/internal/hallucination"
	"factbench/internal/pipeline"
	"factbench/internal/triplet"
)

// Reasons an attempt is rejected.
var (
	ErrEmptyFactCheck        = errors.New("no fact-check judgments")
	ErrLengthMismatch        = errors.New("judgment count does not match triplet count")
	ErrIndexMismatch         = errors.New("judgments do not cover triplet indexes")
	ErrEmptyAnswerTriplet    = errors.New("empty triplet in answer")
	ErrEmptyReferenceTriplet = errors.New("empty triplet in references")
	ErrNoReferenceTriplets   = errors.New("no reference triplets")
	ErrNoEvidence            = errors.New("answer generator found no evidence")
	ErrNoHallucination       = errors.New("no usable hallucination record")
)

// AttemptError is a rejected evaluation attempt.
type AttemptError struct {
	Attempt int
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d: %v", e.Attempt, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// CheckOutput validates an original-run attempt. Checks run in order and
// the first failure is returned.
func CheckOutput(row dataset.QARecord, out pipeline.Output) error {
	if err := checkCommon(row, out, len(out.AnswerTriplets)); err != nil {
		return err
	}
	if answer.IsNoEvidence(out.GeneratedAnswer) && len(out.FactCheck) == 1 {
		return ErrNoEvidence
	}
	return nil
}

// CheckHallucinationOutput validates a hallucination-run attempt. The
// judgment count must match the record's hallucination index.
func CheckHallucinationOutput(row dataset.QARecord, out pipeline.Output, rec *hallucination.Record) error {
	return checkCommon(row, out, len(rec.HlcntnTripletIndex))
}

func checkCommon(row dataset.QARecord, out pipeline.Output, want int) error {
	switch {
	case len(out.FactCheck) == 0:
		return ErrEmptyFactCheck
	case len(out.FactCheck) != want:
		return fmt.Errorf("%w: %d judgments, %d triplets", ErrLengthMismatch, len(out.FactCheck), want)
	case !out.FactCheck.Covers(want):
		return fmt.Errorf("%w: judged %v, want 0..%d", ErrIndexMismatch, out.FactCheck.Indexes(), want-1)
	case triplet.HasEmpty(out.AnswerTriplets):
		return ErrEmptyAnswerTriplet
	case len(row.ReferenceTriplets) == 0:
		return ErrNoReferenceTriplets
	}
	for _, seg := range row.ReferenceTriplets {
		if triplet.HasEmpty(seg) {
			return ErrEmptyReferenceTriplet
		}
	}
	return nil
}

// Reason returns a short label for why an attempt was rejected.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyFactCheck):
		return "empty_fact_check"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrIndexMismatch):
		return "index_mismatch"
	case errors.Is(err, ErrEmptyAnswerTriplet):
		return "empty_answer_triplet"
	case errors.Is(err, ErrEmptyReferenceTriplet):
		return "empty_reference_triplet"
	case errors.Is(err, ErrNoReferenceTriplets):
		return "no_reference_triplets"
	case errors.Is(err, ErrNoEvidence):
		return "no_evidence"
	case errors.Is(err, ErrNoHallucination):
		return "no_hallucination"
	}
	return "generation_error"
}
