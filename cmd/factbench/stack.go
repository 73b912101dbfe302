package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factbench/internal/answer"
	"factbench/internal/config"
	"factbench/internal/dataset"
	"factbench/internal/datastore"
	"factbench/internal/demo"
	"factbench/internal/extract"
	"factbench/internal/factcheck"
	"factbench/internal/hallucination"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/pipeline"
	"factbench/internal/prompt"
	"factbench/internal/triplet"
	"factbench/internal/tripletstore"
)

// demoSeed fixes demonstration sampling so reruns see the same prompts.
const demoSeed = 42

// taskReprompter labels reprompt calls in usage accounting.
const taskReprompter = "reprompter"

// loadConfig layers the persistent root flags over o and loads the
// configuration. It configures console logging as a side effect.
func loadConfig(cmd *cobra.Command, o config.Overrides) (config.Config, error) {
	f := cmd.Flags()
	if f.Changed("experiment-name") {
		o.ExperimentName = &rootFlags.experimentName
	}
	if f.Changed("logger-level") {
		o.LoggerLevel = &rootFlags.loggerLevel
	}
	cfg, err := config.Load(rootFlags.config, o, rootFlags.envFile)
	if err != nil {
		return config.Config{}, err
	}
	level, _ := logging.ParseLevel(cfg.LoggerLevel)
	logging.Init(level, cfg.LoggerFormat)
	return cfg, nil
}

// loadBank returns the built-in prompt bank, layered with the configured
// prompt file when there is one.
func loadBank(cfg config.Config) (*prompt.Bank, error) {
	if cfg.Paths.Prompts == "" {
		return prompt.Default(), nil
	}
	return prompt.Load(cfg.Paths.Prompts)
}

// stack builds the evaluation components from one configuration.
type stack struct {
	cfg    config.Config
	bank   *prompt.Bank
	pool   *demo.Pool
	client llm.Client
	usage  llm.UsageTracker
}

// newStack loads demonstrations and connects the model client. usage may
// be nil.
func newStack(ctx context.Context, cfg config.Config, bank *prompt.Bank, usage llm.UsageTracker) (*stack, error) {
	pool, err := demo.LoadPool(ctx, cfg.Paths.Resolve(cfg.Paths.Demos), demo.Tasks, demoSeed, logging.New("demo"))
	if err != nil {
		return nil, err
	}
	m := cfg.Model.LLM
	client, err := llm.New(llm.Config{
		Provider:      m.Provider,
		Model:         m.Model,
		Temperature:   m.Temperature,
		MaxTokens:     m.MaxTokens,
		APIKey:        m.APIKey,
		BaseURL:       m.BaseURL,
		RequestMaxTry: m.RequestMaxTry,
		RetryDelay:    m.RetryDelay.Duration,
		SignalDir:     m.SignalDir,
		Timeout:       m.Timeout.Duration,
	}, logging.New("llm"))
	if err != nil {
		return nil, err
	}
	return &stack{cfg: cfg, bank: bank, pool: pool, client: client, usage: usage}, nil
}

func (s *stack) model(task string) llm.Client {
	return llm.Tracked(s.client, s.usage, task)
}

// shots returns the few-shot settings of an n-shot component, nil otherwise.
func (s *stack) shots(task string, c config.Component) (*demo.Shots, error) {
	if !strings.HasSuffix(c.ModelName, "n_shot") {
		return nil, nil
	}
	mode, err := demo.ParseSampling(c.DemoSampling)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", task, err)
	}
	return &demo.Shots{Pool: s.pool, Task: task, N: c.NumShot, Mode: mode}, nil
}

func (s *stack) answers() (answer.Generator, error) {
	c := s.cfg.Model.AnswerGenerator
	switch c.ModelName {
	case answer.ModelLLM, answer.ModelLLMNShot:
	default:
		return nil, fmt.Errorf("unknown answer generator %q", c.ModelName)
	}
	shots, err := s.shots(demo.TaskAnswerGenerator, c)
	if err != nil {
		return nil, err
	}
	return answer.NewLLM(s.model(demo.TaskAnswerGenerator), s.bank, shots), nil
}

func (s *stack) triplets() (extract.Generator, error) {
	c := s.cfg.Model.TripletGenerator
	switch c.ModelName {
	case extract.ModelLLM, extract.ModelLLMNShot:
	default:
		return nil, fmt.Errorf("unknown triplet generator %q", c.ModelName)
	}
	shots, err := s.shots(demo.TaskTripletGenerator, c)
	if err != nil {
		return nil, err
	}
	return extract.NewLLM(s.model(demo.TaskTripletGenerator), s.bank, shots, logging.New("extract")), nil
}

func (s *stack) injector() (hallucination.Injector, error) {
	c := s.cfg.Model.HallucinationDataGenerator
	switch c.ModelName {
	case hallucination.ModelLLM, hallucination.ModelLLMNShot:
	default:
		return nil, fmt.Errorf("unknown hallucination data generator %q", c.ModelName)
	}
	shots, err := s.shots(demo.TaskHallucinationData, c)
	if err != nil {
		return nil, err
	}
	return hallucination.NewLLM(s.model(demo.TaskHallucinationData), s.bank, shots, logging.New("hallucination")), nil
}

func (s *stack) checker() (factcheck.Checker, error) {
	c := s.cfg.Model.FactChecker
	mode, err := demo.ParseSampling(c.DemoSampling)
	if err != nil {
		return nil, fmt.Errorf("fact_checker: %w", err)
	}
	return factcheck.New(c.ModelName, factcheck.Options{
		Client:           s.model(demo.TaskFactChecker),
		Bank:             s.bank,
		Pool:             s.pool,
		NumShot:          c.NumShot,
		Sampling:         mode,
		PartialThreshold: c.PartialThreshold,
		Logger:           logging.New("factcheck"),
	})
}

// system wires the fact-checking system. answers may be nil for text
// matching, which never generates answers.
func (s *stack) system(answers answer.Generator, gen extract.Generator) (*pipeline.System, error) {
	checker, err := s.checker()
	if err != nil {
		return nil, err
	}
	var reprompter *factcheck.Reprompter
	if s.cfg.DoReprompt {
		reprompter = factcheck.NewReprompter(s.model(taskReprompter), s.bank, s.cfg.Model.Reprompter.Threshold, logging.New("reprompt"))
	}
	return pipeline.New(pipeline.Components{
		Answers:    answers,
		Triplets:   gen,
		Checker:    checker,
		Reprompter: reprompter,
		Logger:     logging.New("pipeline"),
	}), nil
}

// experiment loads the corpus and QA set and opens the triplet and
// hallucination caches. injector may be nil when no hallucination run is
// planned.
func (s *stack) experiment(ctx context.Context, gen extract.Generator, injector hallucination.Injector) (*dataset.Experiment, error) {
	log := logging.New("dataset")
	p := s.cfg.Paths
	corpus, qa, err := loadDataset(s.cfg)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded", "passages", corpus.Len(), "questions", len(qa), "filter", s.cfg.ExperimentSetup.Dataset)

	fc := s.cfg.Model.FactChecker
	mode := tripletstore.Flat
	if fc.SplitReferenceTriplets {
		mode = tripletstore.Segmented
	}
	store := tripletstore.New(corpus, gen, tripletstore.Options{
		Persist:   datastore.NewFileStore[[]triplet.Triplet](p.Resolve(p.CorpusTriplets)),
		Save:      s.cfg.SaveData,
		MaxLength: fc.MaxReferenceTripletLength,
		Logger:    logging.New("tripletstore"),
	})
	exp := dataset.NewExperiment(qa, corpus, store, dataset.ExperimentOptions{
		Mode:               mode,
		Hallucinations:     datastore.NewFileStore[hallucination.Record](p.Resolve(p.Hallucinations)),
		Injector:           injector,
		Generator:          gen,
		SaveHallucinations: s.cfg.SaveData,
		Logger:             log,
	})
	if err := exp.Load(ctx); err != nil {
		return nil, err
	}
	return exp, nil
}

// loadDataset reads the corpus and the filtered QA set.
func loadDataset(cfg config.Config) (*dataset.Corpus, []dataset.QARecord, error) {
	p := cfg.Paths
	corpus, err := dataset.LoadCorpus(p.Resolve(p.Corpus))
	if err != nil {
		return nil, nil, err
	}
	qa, err := dataset.LoadQA(p.Resolve(p.QA), cfg.ExperimentSetup.Dataset, corpus)
	if err != nil {
		return nil, nil, err
	}
	return corpus, qa, nil
}
