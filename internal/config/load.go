package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"factbench/internal/logging"
)

// Overrides carries command-line values; nil fields leave the file value.
type Overrides struct {
	ExperimentName   *string
	AnswerGenerator  *string
	TripletGenerator *string
	FactChecker      *string
	NumTestSamples   *int
	SampleIdx        *int
	SaveResult       *bool
	SaveData         *bool
	EvaluateHlcntn   *bool
	DoReprompt       *bool
	LoggerLevel      *string
}

// Load builds the configuration: defaults, then the file at path (if any),
// then overrides, then API keys from the environment and envFiles.
func Load(path string, o Overrides, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
		if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.apply(o)
	if err := loadEnv(&cfg, envFiles); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses data onto cfg. ext selects the format (".json", ".yaml",
// ".yml"); empty detects it from the content.
func Decode(data []byte, ext string, cfg *Config) error {
	ext = strings.ToLower(ext)
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse json: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

func (c *Config) apply(o Overrides) {
	if o.ExperimentName != nil {
		c.ExperimentName = *o.ExperimentName
	}
	if o.AnswerGenerator != nil {
		c.Model.AnswerGenerator.ModelName = *o.AnswerGenerator
	}
	if o.TripletGenerator != nil {
		c.Model.TripletGenerator.ModelName = *o.TripletGenerator
	}
	if o.FactChecker != nil {
		c.Model.FactChecker.ModelName = *o.FactChecker
	}
	if o.NumTestSamples != nil {
		c.NumTestSamples = *o.NumTestSamples
	}
	if o.SampleIdx != nil {
		v := *o.SampleIdx
		c.SampleIdx = &v
	}
	if o.SaveResult != nil {
		c.SaveResult = *o.SaveResult
	}
	if o.SaveData != nil {
		c.SaveData = *o.SaveData
	}
	if o.EvaluateHlcntn != nil {
		c.EvaluateHlcntn = *o.EvaluateHlcntn
	}
	if o.DoReprompt != nil {
		c.DoReprompt = *o.DoReprompt
	}
	if o.LoggerLevel != nil {
		c.LoggerLevel = *o.LoggerLevel
	}
}

// Environment variables holding API keys, per provider.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// RepoPathEnv names the git work tree recorded in commit_info.json.
const RepoPathEnv = "REPO_PATH"

func loadEnv(c *Config, files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: env file %s: %w", f, err)
		}
	}
	if name, ok := apiKeyEnv[c.Model.LLM.Provider]; ok {
		c.Model.LLM.APIKey = os.Getenv(name)
	}
	return nil
}

// Validate reports the first inconsistency in c.
func (c Config) Validate() error {
	switch {
	case c.ExperimentSetup.SystemRetry < 0:
		return errors.New("config: experiment_setup.system_retry must not be negative")
	case c.Model.FactChecker.MaxReferenceTripletLength <= 0:
		return errors.New("config: model.fact_checker.max_reference_triplet_length must be positive")
	case c.Model.Reprompter.Threshold < 0 || c.Model.Reprompter.Threshold > 1:
		return errors.New("config: model.reprompter.threshold must be within [0, 1]")
	case c.NumTestSamples < 0:
		return errors.New("config: num_test_samples must not be negative")
	case c.SampleIdx != nil && *c.SampleIdx < 0:
		return errors.New("config: sample_idx must not be negative")
	}
	if _, err := logging.ParseLevel(c.LoggerLevel); err != nil {
		return fmt.Errorf("config: logger_level: %w", err)
	}
	return nil
}

// RequireName fails when no experiment name is set. Commands that write
// outputs call it; inspection commands do not need a name.
func (c Config) RequireName() error {
	if strings.TrimSpace(c.ExperimentName) == "" {
		return errors.New("config: experiment_name is required")
	}
	return nil
}

// RunName is the experiment directory name: the experiment name, suffixed
// with the sample index when one sample is selected.
func (c Config) RunName() string {
	if c.SampleIdx != nil {
		return fmt.Sprintf("%s_%d", c.ExperimentName, *c.SampleIdx)
	}
	return c.ExperimentName
}

// ExperimentDir is where the run's outputs are written.
func (c Config) ExperimentDir() string {
	return filepath.Join(c.Paths.ResultsBase, c.RunName())
}
