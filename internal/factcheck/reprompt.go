package factcheck

import (
	"context"
	"encoding/json"
	"log/slog"

	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// Reprompter gives the model a second pass over a low-precision sample,
// showing it the judgments it made before.
type Reprompter struct {
	client    llm.Client
	bank      *prompt.Bank
	threshold float64
	log       *slog.Logger
}

// NewReprompter returns a reprompter that fires below threshold precision.
func NewReprompter(client llm.Client, bank *prompt.Bank, threshold float64, logger *slog.Logger) *Reprompter {
	return &Reprompter{client: client, bank: bank, threshold: threshold, log: logging.OrDiscard(logger)}
}

// ShouldReprompt reports whether a sample's result is below threshold.
func (r *Reprompter) ShouldReprompt(previous Result) bool {
	return len(previous) > 0 && previous.Precision() < r.threshold
}

// Reprompt rechecks answer against each reference segment. Segment
// outputs are ORed and laid over previous, so every previously judged
// index stays judged. Indexes outside the answer and segments whose output
// cannot be used are ignored; if nothing usable comes back, previous is
// returned unchanged.
func (r *Reprompter) Reprompt(ctx context.Context, answer []triplet.Triplet, reference [][]triplet.Triplet, previous Result) Result {
	prev, err := json.Marshal(previous)
	if err != nil {
		return previous
	}
	fresh := Result{}
	for i, segment := range reference {
		msgs, err := r.bank.Render(prompt.RepromptTripletMatch, map[string]string{
			"answer_triplets":    FormatIndexed(answer),
			"reference_triplets": FormatReference(segment),
			"previous_judgments": string(prev),
		})
		if err != nil {
			r.log.Error("render reprompt", "error", err)
			return previous
		}
		resp, err := r.client.Invoke(ctx, msgs)
		if err != nil {
			r.log.Warn("reprompt request failed", "segment", i, "error", err)
			continue
		}
		out, err := ParseJudgments(resp.Content)
		if err != nil {
			r.log.Warn("reprompt output not parseable, keeping previous judgments", "segment", i, "error", err)
			continue
		}
		for k, v := range out {
			if k < 0 || k >= len(answer) {
				r.log.Warn("reprompt judged an unknown triplet", "segment", i, "index", k)
				continue
			}
			fresh[k] = fresh[k] || v
		}
	}
	if len(fresh) == 0 {
		return previous
	}
	merged := previous.Clone()
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}
