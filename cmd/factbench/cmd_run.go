package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"factbench/internal/config"
	"factbench/internal/display"
	"factbench/internal/evaluate"
	"factbench/internal/format"
	"factbench/internal/llm"
	"factbench/internal/logging"
	"factbench/internal/metrics"
	"factbench/internal/results"
	"factbench/internal/telemetry"
)

var runFlags struct {
	answerGenerator  string
	tripletGenerator string
	factChecker      string
	numTestSamples   int
	sampleIdx        int
	saveResult       bool
	saveData         bool
	evaluateHlcntn   bool
	doReprompt       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the original and hallucination experiments",
	Long: `Run evaluates the configured fact-checking system. The original run checks
freshly generated answers; the hallucination run checks answers with planted
hallucinations. Metrics and predictions are rewritten after every sample
under <results_base>/<experiment_name>.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.answerGenerator, "answer-generator", "", "Answer generator (base_llm, llm_n_shot)")
	f.StringVar(&runFlags.tripletGenerator, "triplet-generator", "", "Triplet generator (llm, llm_n_shot)")
	f.StringVar(&runFlags.factChecker, "fact-checker", "", "Fact checker (exact_match, partial_match, llm, llm_split, llm_n_shot, llm_n_shot_split)")
	f.IntVar(&runFlags.numTestSamples, "num-test-samples", 0, "Evaluate only the first N samples (0 = all)")
	f.IntVar(&runFlags.sampleIdx, "sample-idx", 0, "Evaluate only the sample at this position")
	f.BoolVar(&runFlags.saveResult, "save-result", true, "Write metrics, predictions and snapshots to the experiment directory")
	f.BoolVar(&runFlags.saveData, "save-data", true, "Persist newly generated triplets and hallucination records")
	f.BoolVar(&runFlags.evaluateHlcntn, "evaluate-hlcntn", true, "Also run the hallucination experiment")
	f.BoolVar(&runFlags.doReprompt, "do-reprompt", false, "Reprompt the fact checker on low-precision samples")
}

func runOverrides(cmd *cobra.Command) config.Overrides {
	f := cmd.Flags()
	var o config.Overrides
	if f.Changed("answer-generator") {
		o.AnswerGenerator = &runFlags.answerGenerator
	}
	if f.Changed("triplet-generator") {
		o.TripletGenerator = &runFlags.tripletGenerator
	}
	if f.Changed("fact-checker") {
		o.FactChecker = &runFlags.factChecker
	}
	if f.Changed("num-test-samples") {
		o.NumTestSamples = &runFlags.numTestSamples
	}
	if f.Changed("sample-idx") {
		o.SampleIdx = &runFlags.sampleIdx
	}
	if f.Changed("save-result") {
		o.SaveResult = &runFlags.saveResult
	}
	if f.Changed("save-data") {
		o.SaveData = &runFlags.saveData
	}
	if f.Changed("evaluate-hlcntn") {
		o.EvaluateHlcntn = &runFlags.evaluateHlcntn
	}
	if f.Changed("do-reprompt") {
		o.DoReprompt = &runFlags.doReprompt
	}
	return o
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, runOverrides(cmd))
	if err != nil {
		return err
	}
	if err := cfg.RequireName(); err != nil {
		return err
	}
	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var (
		writer *results.Writer
		sink   evaluate.Sink
	)
	if cfg.SaveResult {
		writer = results.NewWriter(cfg.Paths.ResultsBase, cfg.RunName(), results.Options{
			Config:  cfg,
			Bank:    bank,
			RepoDir: os.Getenv(config.RepoPathEnv),
		})
		logFile, err := writer.OpenLog()
		if err != nil {
			return err
		}
		defer logFile.Close()
		level, _ := logging.ParseLevel(cfg.LoggerLevel)
		logging.InitRun(level, cfg.LoggerFormat, os.Stderr, logFile)
		writer.SetLogger(logging.New("results"))
		if err := writer.Init(); err != nil {
			return err
		}
		sink = writer
	}
	logger := logging.New("run")

	tel := telemetry.New()
	st, err := newStack(ctx, cfg, bank, tel)
	if err != nil {
		return err
	}
	answers, err := st.answers()
	if err != nil {
		return err
	}
	gen, err := st.triplets()
	if err != nil {
		return err
	}
	injector, err := st.injector()
	if err != nil {
		return err
	}
	exp, err := st.experiment(ctx, gen, injector)
	if err != nil {
		return err
	}
	if cfg.ExperimentSetup.SaveAllTripletsAsDataset {
		if err := exp.GenerateAll(ctx, cfg.EvaluateHlcntn); err != nil {
			return fmt.Errorf("generate dataset: %w", err)
		}
	}
	sys, err := st.system(answers, gen)
	if err != nil {
		return err
	}

	eval := evaluate.NewEvaluator(sys, exp, cfg.ExperimentSetup.SystemRetry, tel, logging.New("evaluate"))
	runner := evaluate.NewRunner(eval, sys, sink, evaluate.RunOptions{
		NumSamples: cfg.NumTestSamples,
		SampleIdx:  cfg.SampleIdx,
		Reprompt:   cfg.DoReprompt,
	}, logging.New("runner"))

	logger.Info("experiment configured",
		"name", cfg.RunName(),
		"answer_generator", display.ModelWithCode(cfg.Model.AnswerGenerator.ModelName),
		"triplet_generator", display.ModelWithCode(cfg.Model.TripletGenerator.ModelName),
		"fact_checker", display.ModelWithCode(cfg.Model.FactChecker.ModelName),
		"samples", len(runner.Indexes()))

	out := cmd.OutOrStdout()
	report, _, err := runner.RunOriginal(ctx)
	printReport(out, evaluate.RunOriginal, report)
	if err != nil {
		return err
	}
	if cfg.EvaluateHlcntn {
		report, _, err := runner.RunHallucination(ctx)
		printReport(out, evaluate.RunHallucination, report)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out, llm.FormatUsage(tel.Summary(), format.ASCII))
	if writer != nil {
		if err := tel.WriteFile(writer.Path(results.TelemetryFile)); err != nil {
			logger.Warn("write run telemetry", "error", err)
		}
		fmt.Fprintf(out, "Results: %s\n", writer.Dir)
	}
	return nil
}

func printReport(w io.Writer, run string, r *metrics.Report) {
	title := display.Run(run)
	if r == nil {
		fmt.Fprintf(w, "=== %s ===\nno sample accepted\n\n", title)
		return
	}
	fmt.Fprint(w, metrics.FormatReport(title, r, format.ASCII))
}
