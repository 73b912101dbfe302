package factcheck

import (
	"context"
	"log/slog"

	"factbench/internal/demo"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// LLMChecker asks a model to judge all answer triplets against one
// reference segment at a time and ORs the segment outputs.
type LLMChecker struct {
	client llm.Client
	bank   *prompt.Bank
	shots  *demo.Shots
	log    *slog.Logger
}

// NewLLM returns a segment-wise model checker; shots may be nil.
func NewLLM(client llm.Client, bank *prompt.Bank, shots *demo.Shots, logger *slog.Logger) *LLMChecker {
	return &LLMChecker{client: client, bank: bank, shots: shots, log: logging.OrDiscard(logger)}
}

// Prompt renders the request for one reference segment.
func (c *LLMChecker) Prompt(ctx context.Context, answer, segment []triplet.Triplet) ([]llm.Message, error) {
	return c.bank.Render(prompt.TripletMatch, map[string]string{
		"answer_triplets":    FormatIndexed(answer),
		"reference_triplets": FormatReference(segment),
		"examples":           c.shots.Block(ctx),
	})
}

func (c *LLMChecker) Check(ctx context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet) (Result, Details) {
	var details Details
	if len(answer) == 0 || len(reference) == 0 {
		return Result{}, details
	}
	outputs := make([]Result, 0, len(reference))
	for i, segment := range reference {
		msgs, err := c.Prompt(ctx, answer, segment)
		if err != nil {
			c.log.Error("render fact-check prompt", "error", err)
			return Result{}, details
		}
		resp, err := c.client.Invoke(ctx, msgs)
		if err != nil {
			c.log.Warn("fact-check request failed", "segment", i, "error", err)
			return Result{}, details
		}
		details.Raw = append(details.Raw, resp.Content)

		out, err := ParseJudgments(resp.Content)
		if err != nil {
			c.log.Warn("fact-check output not parseable, judging segment unsupported", "segment", i, "error", err)
			c.log.Debug("raw fact-check output", "raw", resp.Content)
			out = AllFalse(len(answer))
		}
		if !out.Covers(len(answer)) {
			c.log.Warn("fact-check output judges the wrong triplets", "segment", i, "want", len(answer), "got", out.Indexes())
			return Result{}, details
		}
		outputs = append(outputs, out)
	}
	return Merge(outputs, c.log), details
}

// SplitChecker asks a model about one answer triplet at a time against
// the whole flattened reference set.
type SplitChecker struct {
	client llm.Client
	bank   *prompt.Bank
	shots  *demo.Shots
	log    *slog.Logger
}

// NewSplit returns a per-triplet model checker; shots may be nil.
func NewSplit(client llm.Client, bank *prompt.Bank, shots *demo.Shots, logger *slog.Logger) *SplitChecker {
	return &SplitChecker{client: client, bank: bank, shots: shots, log: logging.OrDiscard(logger)}
}

// Prompt renders the request for a single answer triplet.
func (c *SplitChecker) Prompt(ctx context.Context, t triplet.Triplet, reference []triplet.Triplet) ([]llm.Message, error) {
	return c.bank.Render(prompt.TripletMatchSplit, map[string]string{
		"answer_triplets":    FormatIndexed([]triplet.Triplet{t}),
		"reference_triplets": FormatReference(reference),
		"examples":           c.shots.Block(ctx),
	})
}

func (c *SplitChecker) Check(ctx context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet) (Result, Details) {
	var details Details
	flat := triplet.Flatten(reference)
	if len(answer) == 0 || len(flat) == 0 {
		return Result{}, details
	}
	out := make(Result, len(answer))
	for i, t := range answer {
		msgs, err := c.Prompt(ctx, t, flat)
		if err != nil {
			c.log.Error("render fact-check prompt", "error", err)
			return Result{}, details
		}
		resp, err := c.client.Invoke(ctx, msgs)
		if err != nil {
			c.log.Warn("fact-check request failed", "triplet", i, "error", err)
			return Result{}, details
		}
		details.Raw = append(details.Raw, resp.Content)

		v, err := ParseVerdict(resp.Content)
		if err != nil {
			c.log.Warn("fact-check output not parseable, judging triplet unsupported", "triplet", i, "error", err)
			c.log.Debug("raw fact-check output", "raw", resp.Content)
		}
		out[i] = v
	}
	return out, details
}
