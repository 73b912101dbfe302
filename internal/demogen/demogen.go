// Package demogen builds few-shot demonstrations from scored predictions
// or from a hand-written sample file.
package demogen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"factbench/internal/answer"
	"factbench/internal/demo"
	"factbench/internal/extract"
	"factbench/internal/factcheck"
	"factbench/internal/hallucination"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/metrics"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// Generation methods.
const (
	MethodFullScore = "full_score"
	MethodManual    = "manual"
)

// Sample is one input/output pair to turn into a demonstration. ID names
// the demonstration file; demonstrations built from predictions reuse the
// sample id so they are never shown while that sample is evaluated.
type Sample struct {
	ID     int             `json:"idx"`
	Input  json.RawMessage `json:"input"`
	Output json.RawMessage `json:"output"`
}

// Inputs per task, matching the prompt variables of each component.
type (
	TripletInput struct {
		InputText string `json:"input_text"`
	}
	AnswerInput struct {
		Question           string   `json:"question"`
		ReferenceDocuments []string `json:"reference_documents"`
	}
	FactCheckInput struct {
		AnswerTriplets    []triplet.Triplet `json:"answer_triplets"`
		ReferenceTriplets []triplet.Triplet `json:"reference_triplets"`
	}
	HallucinationInput = AnswerInput
)

// FromPredictions selects predictions with precision 1 and more than one
// judgment and extracts the task's input/output pair from each.
func FromPredictions(preds []metrics.Prediction, task string) ([]Sample, error) {
	var out []Sample
	for _, p := range preds {
		if p.Precision != 1.0 || len(p.FactCheck) <= 1 {
			continue
		}
		var in, res any
		switch task {
		case demo.TaskTripletGenerator:
			in, res = TripletInput{InputText: p.GeneratedAnswer}, p.AnswerTriplets
		case demo.TaskAnswerGenerator:
			in, res = AnswerInput{Question: p.Question, ReferenceDocuments: p.ReferenceDocuments}, p.GeneratedAnswer
		case demo.TaskFactChecker:
			in = FactCheckInput{AnswerTriplets: p.AnswerTriplets, ReferenceTriplets: triplet.Flatten(p.ReferenceTriplets)}
			res = p.FactCheck
		default:
			return nil, fmt.Errorf("demogen: task %q cannot be built from predictions", task)
		}
		s, err := newSample(p.Idx, in, res)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func newSample(id int, in, out any) (Sample, error) {
	i, err := json.Marshal(in)
	if err != nil {
		return Sample{}, fmt.Errorf("demogen: %w", err)
	}
	o, err := json.Marshal(out)
	if err != nil {
		return Sample{}, fmt.Errorf("demogen: %w", err)
	}
	return Sample{ID: id, Input: i, Output: o}, nil
}

// LoadManual reads a JSON array of samples. Samples without an "idx"
// are numbered by position.
func LoadManual(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demogen: read %s: %w", path, err)
	}
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("demogen: decode %s: %w", path, err)
	}
	out := make([]Sample, 0, len(raw))
	for i, m := range raw {
		s := Sample{ID: i, Input: m["input"], Output: m["output"]}
		if id, ok := m["idx"]; ok {
			if err := json.Unmarshal(id, &s.ID); err != nil {
				return nil, fmt.Errorf("demogen: sample %d idx: %w", i, err)
			}
		}
		if len(s.Input) == 0 || len(s.Output) == 0 {
			return nil, fmt.Errorf("demogen: sample %d needs input and output", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// Generator renders task prompts for samples and saves the demonstrations.
type Generator struct {
	bank   *prompt.Bank
	writer *demo.Writer
	log    *slog.Logger
}

// New returns a generator; writer nil means demonstrations are only
// returned, not saved.
func New(bank *prompt.Bank, writer *demo.Writer, logger *slog.Logger) *Generator {
	return &Generator{bank: bank, writer: writer, log: logging.OrDiscard(logger)}
}

// Generate builds one demonstration per sample for task.
func (g *Generator) Generate(ctx context.Context, task string, samples []Sample) ([]demo.Demo, error) {
	out := make([]demo.Demo, 0, len(samples))
	for _, s := range samples {
		msgs, err := g.render(ctx, task, s.Input)
		if err != nil {
			return out, fmt.Errorf("demogen: sample %d: %w", s.ID, err)
		}
		var res any = s.Output
		var text string
		if json.Unmarshal(s.Output, &text) == nil {
			res = text
		}
		d, err := demo.Build(userContent(msgs), s.Input, res)
		if err != nil {
			return out, err
		}
		d.Input, d.Output = s.Input, s.Output
		if g.writer != nil {
			if err := g.writer.Save(ctx, task, s.ID, d); err != nil {
				return out, fmt.Errorf("demogen: save %d: %w", s.ID, err)
			}
		}
		out = append(out, d)
	}
	g.log.Info("demonstrations generated", "task", task, "count", len(out))
	return out, nil
}

// render builds the task prompt without few-shot examples. The components
// are built without a client since only their prompts are needed.
func (g *Generator) render(ctx context.Context, task string, input json.RawMessage) ([]llm.Message, error) {
	switch task {
	case demo.TaskTripletGenerator:
		var in TripletInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		return extract.NewLLM(nil, g.bank, nil, nil).Prompt(ctx, in.InputText)
	case demo.TaskAnswerGenerator:
		var in AnswerInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		return answer.NewLLM(nil, g.bank, nil).Prompt(ctx, in.Question, in.ReferenceDocuments)
	case demo.TaskFactChecker:
		var in FactCheckInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		return factcheck.NewLLM(nil, g.bank, nil, nil).Prompt(ctx, in.AnswerTriplets, in.ReferenceTriplets)
	case demo.TaskHallucinationData:
		var in HallucinationInput
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, err
		}
		return hallucination.NewLLM(nil, g.bank, nil, nil).Prompt(ctx, hallucination.Source{Question: in.Question, Documents: in.ReferenceDocuments})
	}
	return nil, fmt.Errorf("unknown task %q", task)
}

func userContent(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
