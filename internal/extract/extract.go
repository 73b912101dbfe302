// Package extract turns free text into triplets with a language model.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"factbench/internal/demo"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// Generator extracts triplets from text.
type Generator interface {
	Generate(ctx context.Context, text string) ([]triplet.Triplet, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, text string) ([]triplet.Triplet, error)

func (f GeneratorFunc) Generate(ctx context.Context, text string) ([]triplet.Triplet, error) {
	return f(ctx, text)
}

// Model names accepted in configuration.
const (
	ModelLLM      = "llm"
	ModelLLMNShot = "llm_n_shot"
)

// LLMGenerator prompts a model for a JSON triplet list.
type LLMGenerator struct {
	client llm.Client
	bank   *prompt.Bank
	shots  *demo.Shots
	log    *slog.Logger
}

// NewLLM returns a zero-shot generator. shots may be nil; when set, a
// few-shot block of task triplet_generator demonstrations is added.
func NewLLM(client llm.Client, bank *prompt.Bank, shots *demo.Shots, logger *slog.Logger) *LLMGenerator {
	return &LLMGenerator{client: client, bank: bank, shots: shots, log: logging.OrDiscard(logger)}
}

// Prompt renders the messages sent for text.
func (g *LLMGenerator) Prompt(ctx context.Context, text string) ([]llm.Message, error) {
	return g.bank.Render(prompt.TripletGeneration, map[string]string{
		"input_text": text,
		"examples":   g.shots.Block(ctx),
	})
}

// Generate returns the model's triplets. Output that cannot be parsed
// yields a single Empty sentinel rather than an error; callers treat the
// sentinel as a data-quality failure. Model errors are returned.
func (g *LLMGenerator) Generate(ctx context.Context, text string) ([]triplet.Triplet, error) {
	msgs, err := g.Prompt(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	resp, err := g.client.Invoke(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	ts, malformed, err := triplet.ParseList(resp.Content)
	var pe *triplet.ParseError
	if errors.As(err, &pe) {
		g.log.Warn("triplet output not parseable, using sentinel", "error", pe.Err)
		g.log.Debug("raw triplet output", "raw", pe.Raw)
		return []triplet.Triplet{triplet.Empty}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if malformed > 0 {
		g.log.Warn("malformed triplets replaced with sentinel", "count", malformed)
	}
	return ts, nil
}
