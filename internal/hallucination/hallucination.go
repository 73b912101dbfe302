// Package hallucination builds synthetic hallucinated answers with known
// ground truth: which answer triplets are not supported by the references.
package hallucination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"factbench/internal/answer"
	"factbench/internal/demo"
	"factbench/internal/extract"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
)

// Model names accepted in configuration.
const (
	ModelLLM      = "llm"
	ModelLLMNShot = "llm_n_shot"
)

// Record is one generated hallucination sample. HlcntnTripletIndex is
// aligned with AnswerTriplets: true marks a hallucinated triplet.
type Record struct {
	GeneratedAnswer          string            `json:"generated_answer"`
	GeneratedNonHlcntnAnswer string            `json:"generated_non_hlcntn_answer"`
	GeneratedHlcntnAnswer    string            `json:"generated_hlcntn_answer"`
	AnswerTriplets           []triplet.Triplet `json:"answer_triplets"`
	NonHlcntnTriplets        []triplet.Triplet `json:"non_hlcntn_triplets"`
	HlcntnTripletIndex       []bool            `json:"hlcntn_triplet_index"`
	HlcntnPart               string            `json:"hlcntn_part"`
}

// NumHallucinated counts triplets flagged as hallucinated.
func (r *Record) NumHallucinated() int {
	n := 0
	for _, h := range r.HlcntnTripletIndex {
		if h {
			n++
		}
	}
	return n
}

// Source is the QA sample a record is generated from.
type Source struct {
	ID        int
	Question  string
	Documents []string
}

// Injector produces a hallucination record for a sample, using gen to
// extract triplets from both generated answers.
type Injector interface {
	Inject(ctx context.Context, src Source, gen extract.Generator) (*Record, error)
}

// LLMInjector asks a model for a faithful answer and a hallucinated rewrite.
type LLMInjector struct {
	client llm.Client
	bank   *prompt.Bank
	shots  *demo.Shots
	log    *slog.Logger
}

// NewLLM returns an injector; shots may be nil.
func NewLLM(client llm.Client, bank *prompt.Bank, shots *demo.Shots, logger *slog.Logger) *LLMInjector {
	return &LLMInjector{client: client, bank: bank, shots: shots, log: logging.OrDiscard(logger)}
}

// Prompt renders the generation request for src.
func (in *LLMInjector) Prompt(ctx context.Context, src Source) ([]llm.Message, error) {
	return in.bank.Render(prompt.HallucinationGeneration, map[string]string{
		"question":            src.Question,
		"reference_documents": answer.FormatDocuments(src.Documents),
		"examples":            in.shots.Block(ctx),
	})
}

// Answers holds the three fields the model returns.
type Answers struct {
	NonHallucinated  string `json:"non_hallucinated_answer"`
	Hallucinated     string `json:"hallucinated_answer"`
	HallucinatedPart string `json:"hallucinated_part"`
}

// ParseAnswers extracts the generated answers from model output.
func ParseAnswers(raw string) (Answers, error) {
	body := triplet.FinalAnswer(raw)
	if !gjson.Valid(body) {
		return Answers{}, &triplet.ParseError{Raw: raw, Err: fmt.Errorf("not a JSON document")}
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return Answers{}, &triplet.ParseError{Raw: raw, Err: fmt.Errorf("want a JSON object")}
	}
	var a Answers
	for key, dst := range map[string]*string{
		"non_hallucinated_answer": &a.NonHallucinated,
		"hallucinated_answer":     &a.Hallucinated,
		"hallucinated_part":       &a.HallucinatedPart,
	} {
		v := doc.Get(key)
		if !v.Exists() || v.Type != gjson.String {
			return Answers{}, &triplet.ParseError{Raw: raw, Err: fmt.Errorf("missing string field %q", key)}
		}
		*dst = strings.TrimSpace(v.String())
	}
	return a, nil
}

func (in *LLMInjector) Inject(ctx context.Context, src Source, gen extract.Generator) (*Record, error) {
	msgs, err := in.Prompt(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("hallucination: %w", err)
	}
	resp, err := in.client.Invoke(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("hallucination: %w", err)
	}
	a, err := ParseAnswers(resp.Content)
	if err != nil {
		in.log.Debug("raw hallucination output", "raw", resp.Content)
		return nil, fmt.Errorf("hallucination: %w", err)
	}

	hlTriplets, err := gen.Generate(ctx, a.Hallucinated)
	if err != nil {
		return nil, fmt.Errorf("hallucination: triplets of hallucinated answer: %w", err)
	}
	nonHlTriplets, err := gen.Generate(ctx, a.NonHallucinated)
	if err != nil {
		return nil, fmt.Errorf("hallucination: triplets of faithful answer: %w", err)
	}

	return &Record{
		GeneratedAnswer:          a.Hallucinated,
		GeneratedNonHlcntnAnswer: a.NonHallucinated,
		GeneratedHlcntnAnswer:    a.Hallucinated,
		AnswerTriplets:           hlTriplets,
		NonHlcntnTriplets:        nonHlTriplets,
		HlcntnTripletIndex:       Index(hlTriplets, nonHlTriplets),
		HlcntnPart:               a.HallucinatedPart,
	}, nil
}

// Index flags each answer triplet that the faithful answer does not contain.
func Index(answerTriplets, faithful []triplet.Triplet) []bool {
	idx := make([]bool, len(answerTriplets))
	for i, t := range answerTriplets {
		idx[i] = !triplet.Contains(faithful, t)
	}
	return idx
}
