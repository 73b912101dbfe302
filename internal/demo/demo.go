// Package demo manages few-shot demonstrations: cached input/output pairs
// per task that are sampled into prompts.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Task names used as demonstration directories.
const (
	TaskTripletGenerator  = "triplet_generator"
	TaskAnswerGenerator   = "answer_generator"
	TaskFactChecker       = "fact_checker"
	TaskHallucinationData = "hallucination_data_generator"
)

// Tasks lists every task that can carry demonstrations.
var Tasks = []string{TaskTripletGenerator, TaskAnswerGenerator, TaskFactChecker, TaskHallucinationData}

// Demo is one cached demonstration. Text is what goes into the prompt;
// Input and Output keep the structured pair it was built from.
type Demo struct {
	Text   string          `json:"text"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// Sampling selects how demonstrations are drawn from a pool.
type Sampling string

const (
	SamplingRandom Sampling = "random"
	SamplingAll    Sampling = "all"
)

// ParseSampling validates a sampling mode name.
func ParseSampling(s string) (Sampling, error) {
	switch Sampling(s) {
	case SamplingRandom, "":
		return SamplingRandom, nil
	case SamplingAll:
		return SamplingAll, nil
	}
	return "", fmt.Errorf("demo: unknown sampling %q", s)
}

// Format renders demonstrations as a few-shot block. No demonstrations
// render as the empty string.
func Format(demos []Demo) string {
	if len(demos) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[BEGIN FEW-SHOT-EXAMPLES]\n")
	for i, d := range demos {
		fmt.Fprintf(&sb, "<Example %d Input/Output Pair>\n%s\n\n", i+1, strings.TrimSpace(d.Text))
	}
	sb.WriteString("[END FEW-SHOT-EXAMPLES]")
	return sb.String()
}

type sampleIDKey struct{}

// WithSampleID marks ctx as evaluating sample id, so demonstrations built
// from that same sample are never shown to the model.
func WithSampleID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, sampleIDKey{}, id)
}

// SampleID returns the sample id set by WithSampleID.
func SampleID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(sampleIDKey{}).(int)
	return id, ok
}
