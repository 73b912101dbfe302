package factcheck

import (
	"fmt"
	"log/slog"

	"factbench/internal/demo"
	"factbench/internal/llm"
	"factbench/internal/prompt"
)

// Checker names accepted in configuration.
const (
	ModelExactMatch    = "exact_match"
	ModelPartialMatch  = "partial_match"
	ModelLLM           = "llm"
	ModelLLMSplit      = "llm_split"
	ModelLLMNShot      = "llm_n_shot"
	ModelLLMNShotSplit = "llm_n_shot_split"
)

// Options carries what the model-backed checkers need.
type Options struct {
	Client           llm.Client
	Bank             *prompt.Bank
	Pool             *demo.Pool
	NumShot          int
	Sampling         demo.Sampling
	PartialThreshold int
	Logger           *slog.Logger
}

// New builds the named checker.
func New(name string, o Options) (Checker, error) {
	var shots *demo.Shots
	switch name {
	case ModelLLMNShot, ModelLLMNShotSplit:
		shots = &demo.Shots{Pool: o.Pool, Task: demo.TaskFactChecker, N: o.NumShot, Mode: o.Sampling}
	}
	switch name {
	case ModelExactMatch:
		return ExactMatch{}, nil
	case ModelPartialMatch:
		return PartialMatch{Threshold: o.PartialThreshold}, nil
	case ModelLLM, ModelLLMNShot:
		if o.Client == nil {
			return nil, fmt.Errorf("factcheck: %s needs a model client", name)
		}
		return NewLLM(o.Client, o.Bank, shots, o.Logger), nil
	case ModelLLMSplit, ModelLLMNShotSplit:
		if o.Client == nil {
			return nil, fmt.Errorf("factcheck: %s needs a model client", name)
		}
		return NewSplit(o.Client, o.Bank, shots, o.Logger), nil
	}
	return nil, fmt.Errorf("factcheck: unknown checker %q", name)
}

// UsesModel reports whether the named checker calls a model.
func UsesModel(name string) bool {
	switch name {
	case ModelExactMatch, ModelPartialMatch:
		return false
	}
	return true
}
