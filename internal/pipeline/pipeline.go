// Package pipeline chains answer generation, triplet extraction and
// fact-checking into one system.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"factbench/internal/answer"
	"factbench/internal/dataset"
	"factbench/internal/extract"
	"factbench/internal/factcheck"
	"factbench/internal/hallucination"
	"factbench/internal/logging"
	"factbench/internal/triplet"
)

// Output is the result of one forward pass.
type Output struct {
	GeneratedAnswer string            `json:"generated_answer"`
	AnswerTriplets  []triplet.Triplet `json:"answer_triplets"`
	FactCheck       factcheck.Result  `json:"fact_check_prediction_binary"`
	Details         factcheck.Details `json:"-"`
}

// TextMatch is the result of checking one inline text against another.
type TextMatch struct {
	AnswerTriplets    []triplet.Triplet `json:"answer_triplets"`
	ReferenceTriplets []triplet.Triplet `json:"reference_triplets"`
	FactCheck         factcheck.Result  `json:"fact_check_prediction_binary"`
	// Unsupported lists the answer indexes judged false.
	Unsupported []int `json:"false_triplet_index"`
}

// System is the fact-checking system under evaluation.
type System struct {
	answers    answer.Generator
	triplets   extract.Generator
	checker    factcheck.Checker
	reprompter *factcheck.Reprompter
	log        *slog.Logger
}

// Components wires a System. Answers is only needed by Forward and
// Reprompter only by Reprompt.
type Components struct {
	Answers    answer.Generator
	Triplets   extract.Generator
	Checker    factcheck.Checker
	Reprompter *factcheck.Reprompter
	Logger     *slog.Logger
}

func New(c Components) *System {
	return &System{
		answers:    c.Answers,
		triplets:   c.Triplets,
		checker:    c.Checker,
		reprompter: c.Reprompter,
		log:        logging.OrDiscard(c.Logger),
	}
}

// Forward answers row from its reference documents, extracts the answer's
// triplets and checks them against row's reference triplets.
func (s *System) Forward(ctx context.Context, row dataset.QARecord) (Output, error) {
	if s.answers == nil {
		return Output{}, fmt.Errorf("pipeline: no answer generator")
	}
	text, err := s.answers.Generate(ctx, row.Question, row.ReferenceDocuments)
	if err != nil {
		return Output{}, err
	}
	ts, err := s.triplets.Generate(ctx, text)
	if err != nil {
		return Output{}, err
	}
	out := Output{GeneratedAnswer: text, AnswerTriplets: ts}
	out.FactCheck, out.Details = s.checker.Check(ctx, ts, row.ReferenceTriplets)
	s.log.Debug("forward", "sample_id", row.ID, "answer_triplets", len(ts), "judgments", len(out.FactCheck))
	return out, nil
}

// HallucinationForward checks the triplets of a hallucinated answer
// against row's reference triplets.
func (s *System) HallucinationForward(ctx context.Context, row dataset.QARecord, rec *hallucination.Record) Output {
	out := Output{GeneratedAnswer: rec.GeneratedAnswer, AnswerTriplets: rec.AnswerTriplets}
	out.FactCheck, out.Details = s.checker.Check(ctx, rec.AnswerTriplets, row.ReferenceTriplets)
	s.log.Debug("hallucination forward", "sample_id", row.ID,
		"answer_triplets", len(rec.AnswerTriplets), "hallucinated", rec.NumHallucinated(), "judgments", len(out.FactCheck))
	return out
}

// ShouldReprompt reports whether out qualifies for a second pass.
func (s *System) ShouldReprompt(out Output) bool {
	return s.reprompter != nil && s.reprompter.ShouldReprompt(out.FactCheck)
}

// Reprompt rechecks out with its previous judgments as context. The
// previous result is returned when the second pass yields nothing.
func (s *System) Reprompt(ctx context.Context, row dataset.QARecord, out Output) factcheck.Result {
	if s.reprompter == nil {
		return out.FactCheck
	}
	return s.reprompter.Reprompt(ctx, out.AnswerTriplets, row.ReferenceTriplets, out.FactCheck)
}

// DirectTextMatch extracts triplets from both texts and checks the answer
// triplets against the reference triplets as a single segment.
func (s *System) DirectTextMatch(ctx context.Context, answerText, referenceText string) (TextMatch, error) {
	ans, err := s.triplets.Generate(ctx, answerText)
	if err != nil {
		return TextMatch{}, fmt.Errorf("pipeline: answer triplets: %w", err)
	}
	ref, err := s.triplets.Generate(ctx, referenceText)
	if err != nil {
		return TextMatch{}, fmt.Errorf("pipeline: reference triplets: %w", err)
	}
	res, _ := s.checker.Check(ctx, ans, [][]triplet.Triplet{ref})
	m := TextMatch{AnswerTriplets: ans, ReferenceTriplets: ref, FactCheck: res}
	for _, i := range res.Indexes() {
		if !res[i] {
			m.Unsupported = append(m.Unsupported, i)
		}
	}
	return m, nil
}
