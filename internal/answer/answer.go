// Package answer generates answers to questions grounded in reference documents.
package answer

import (
	"context"
	"fmt"
	"strings"

	"factbench/internal/demo"
	"factbench/internal/llm"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// NoEvidence starts an answer the model gives when the references do not
// support any answer.
const NoEvidence = "There is no evidence"

// Model names accepted in configuration.
const (
	ModelLLM      = "base_llm"
	ModelLLMNShot = "llm_n_shot"
)

// Generator answers a question from reference documents.
type Generator interface {
	Generate(ctx context.Context, question string, documents []string) (string, error)
}

// LLMGenerator asks a model to answer from the references only.
type LLMGenerator struct {
	client llm.Client
	bank   *prompt.Bank
	shots  *demo.Shots
}

// NewLLM returns an answer generator; shots may be nil.
func NewLLM(client llm.Client, bank *prompt.Bank, shots *demo.Shots) *LLMGenerator {
	return &LLMGenerator{client: client, bank: bank, shots: shots}
}

// Prompt renders the messages sent for question.
func (g *LLMGenerator) Prompt(ctx context.Context, question string, documents []string) ([]llm.Message, error) {
	return g.bank.Render(prompt.AnswerGeneration, map[string]string{
		"question":            question,
		"reference_documents": FormatDocuments(documents),
		"examples":            g.shots.Block(ctx),
	})
}

func (g *LLMGenerator) Generate(ctx context.Context, question string, documents []string) (string, error) {
	msgs, err := g.Prompt(ctx, question, documents)
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	resp, err := g.client.Invoke(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return triplet.FinalAnswer(resp.Content), nil
}

// FormatDocuments numbers documents one per line.
func FormatDocuments(documents []string) string {
	var sb strings.Builder
	for i, d := range documents {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, d)
	}
	return sb.String()
}

// IsNoEvidence reports whether a generated answer declines to answer.
func IsNoEvidence(answer string) bool {
	return strings.HasPrefix(strings.TrimSpace(answer), NoEvidence)
}
