// Package config holds the experiment configuration. A Config is built once
// by Load and passed by value to the components that need it.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config is the full experiment configuration.
type Config struct {
	ExperimentName  string `json:"experiment_name" yaml:"experiment_name"`
	Paths           Paths  `json:"paths" yaml:"paths"`
	ExperimentSetup Setup  `json:"experiment_setup" yaml:"experiment_setup"`
	Model           Model  `json:"model" yaml:"model"`

	SaveData       bool `json:"save_data" yaml:"save_data"`
	SaveResult     bool `json:"save_result" yaml:"save_result"`
	EvaluateHlcntn bool `json:"evaluate_hlcntn" yaml:"evaluate_hlcntn"`
	DoReprompt     bool `json:"do_reprompt" yaml:"do_reprompt"`

	// NumTestSamples caps the evaluated samples; 0 means all.
	NumTestSamples int  `json:"num_test_samples,omitempty" yaml:"num_test_samples,omitempty"`
	SampleIdx      *int `json:"sample_idx,omitempty" yaml:"sample_idx,omitempty"`

	LoggerLevel  string `json:"logger_level" yaml:"logger_level"`
	LoggerFormat string `json:"logger_format" yaml:"logger_format"`
}

// Paths locates inputs and outputs. Relative entries other than
// ResultsBase and Prompts resolve against DataBase.
type Paths struct {
	DataBase       string `json:"data_base" yaml:"data_base"`
	Corpus         string `json:"corpus" yaml:"corpus"`
	QA             string `json:"qa" yaml:"qa"`
	CorpusTriplets string `json:"corpus_triplets" yaml:"corpus_triplets"`
	Hallucinations string `json:"hallucinations" yaml:"hallucinations"`
	Demos          string `json:"demos" yaml:"demos"`
	// Prompts is an optional prompt bank file layered over the built-in one.
	Prompts     string `json:"prompts,omitempty" yaml:"prompts,omitempty"`
	ResultsBase string `json:"results_base" yaml:"results_base"`
}

// Resolve joins p with DataBase unless p is absolute or empty.
func (p Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.DataBase == "" {
		return path
	}
	return filepath.Join(p.DataBase, path)
}

// Setup controls dataset selection and evaluation retries.
type Setup struct {
	// Dataset is a question keyword filter; "all" keeps every question.
	Dataset     string `json:"dataset" yaml:"dataset"`
	SystemRetry int    `json:"system_retry" yaml:"system_retry"`
	// SaveAllTripletsAsDataset pre-generates triplets for the whole corpus
	// and hallucination records for the whole QA set before evaluating.
	SaveAllTripletsAsDataset bool `json:"save_all_triplets_as_dataset" yaml:"save_all_triplets_as_dataset"`
}

// Model selects the model-backed components.
type Model struct {
	LLM                        LLM         `json:"llm" yaml:"llm"`
	AnswerGenerator            Component   `json:"answer_generator" yaml:"answer_generator"`
	TripletGenerator           Component   `json:"triplet_generator" yaml:"triplet_generator"`
	FactChecker                FactChecker `json:"fact_checker" yaml:"fact_checker"`
	HallucinationDataGenerator Component   `json:"hallucination_data_generator" yaml:"hallucination_data_generator"`
	Reprompter                 Reprompter  `json:"reprompter" yaml:"reprompter"`
}

// LLM configures the prompt-completion service.
type LLM struct {
	Provider      string   `json:"provider" yaml:"provider"`
	Model         string   `json:"model" yaml:"model"`
	Temperature   float64  `json:"temperature" yaml:"temperature"`
	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	RequestMaxTry int      `json:"request_max_try" yaml:"request_max_try"`
	RetryDelay    Duration `json:"retry_delay" yaml:"retry_delay"`
	BaseURL       string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// SignalDir and Timeout apply to the file provider.
	SignalDir string   `json:"signal_dir,omitempty" yaml:"signal_dir,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// APIKey is read from the environment, never from the file.
	APIKey string `json:"-" yaml:"-"`
}

// Component names a model variant and its demonstration settings.
type Component struct {
	ModelName    string `json:"model_name" yaml:"model_name"`
	NumShot      int    `json:"num_shot,omitempty" yaml:"num_shot,omitempty"`
	DemoSampling string `json:"demo_sampling,omitempty" yaml:"demo_sampling,omitempty"`
}

// FactChecker extends Component with reference handling.
type FactChecker struct {
	Component                 `yaml:",inline"`
	SplitReferenceTriplets    bool `json:"split_reference_triplets" yaml:"split_reference_triplets"`
	MaxReferenceTripletLength int  `json:"max_reference_triplet_length" yaml:"max_reference_triplet_length"`
	PartialThreshold          int  `json:"partial_threshold,omitempty" yaml:"partial_threshold,omitempty"`
}

// Reprompter configures the second pass.
type Reprompter struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Duration decodes from strings such as "2s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Paths: Paths{
			DataBase:       "data",
			Corpus:         "bioasq/text-corpus.json",
			QA:             "bioasq/question-answer-passages.json",
			CorpusTriplets: "triplets",
			Hallucinations: "hallucinations",
			Demos:          "demonstrations",
			ResultsBase:    "results",
		},
		ExperimentSetup: Setup{Dataset: "all", SystemRetry: 3},
		Model: Model{
			LLM: LLM{
				Provider:      "openai",
				Model:         "gpt-4o-mini",
				RequestMaxTry: 3,
				RetryDelay:    Duration{2 * time.Second},
			},
			AnswerGenerator:  Component{ModelName: "base_llm"},
			TripletGenerator: Component{ModelName: "llm"},
			FactChecker: FactChecker{
				Component:                 Component{ModelName: "llm"},
				SplitReferenceTriplets:    true,
				MaxReferenceTripletLength: 100,
				PartialThreshold:          2,
			},
			HallucinationDataGenerator: Component{ModelName: "llm"},
			Reprompter:                 Reprompter{Threshold: 0.5},
		},
		SaveData:       true,
		SaveResult:     true,
		EvaluateHlcntn: true,
		LoggerLevel:    "INFO",
		LoggerFormat:   "text",
	}
}
