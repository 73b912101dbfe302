package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"factbench/internal/config"
	"factbench/internal/demo"
	"factbench/internal/demogen"
	"factbench/internal/display"
	"factbench/internal/logging"
	"factbench/internal/results"
)

var demosFlags struct {
	target string
	source string
	method string
}

var demosCmd = &cobra.Command{
	Use:   "demos",
	Short: "Build few-shot demonstrations for a component",
	Long: `Demos turns samples into demonstrations for --target and saves them one
file per sample under <demos>/<target>/. With --method full_score the samples
are the perfectly scored predictions of a finished experiment (default
source: <experiment dir>/predictions.json); with --method manual they are
read from a JSON array of {"idx", "input", "output"} objects.`,
	RunE: runDemos,
}

func init() {
	f := demosCmd.Flags()
	f.StringVar(&demosFlags.target, "target", "", "Component task (triplet_generator, answer_generator, fact_checker, hallucination_data_generator)")
	f.StringVar(&demosFlags.source, "source", "", "Predictions file (full_score) or manual samples file (manual)")
	f.StringVar(&demosFlags.method, "method", demogen.MethodFullScore, "Sample source (full_score, manual)")
	_ = demosCmd.MarkFlagRequired("target")
}

func runDemos(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}

	var samples []demogen.Sample
	switch demosFlags.method {
	case demogen.MethodFullScore:
		source := demosFlags.source
		if source == "" {
			if err := cfg.RequireName(); err != nil {
				return fmt.Errorf("--source or an experiment name is required: %w", err)
			}
			source = results.NewWriter(cfg.Paths.ResultsBase, cfg.RunName(), results.Options{}).Path(results.PredictionsFile)
		}
		preds, err := results.LoadPredictions(source)
		if err != nil {
			return err
		}
		samples, err = demogen.FromPredictions(preds, demosFlags.target)
		if err != nil {
			return err
		}
	case demogen.MethodManual:
		if demosFlags.source == "" {
			return fmt.Errorf("--source is required with --method manual")
		}
		samples, err = demogen.LoadManual(demosFlags.source)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown method %q (want %s or %s)", demosFlags.method, demogen.MethodFullScore, demogen.MethodManual)
	}

	w := &demo.Writer{Dir: cfg.Paths.Resolve(cfg.Paths.Demos)}
	demos, err := demogen.New(bank, w, logging.New("demogen")).Generate(cmd.Context(), demosFlags.target, samples)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d %s demonstrations to %s\n", len(demos), display.TaskWithCode(demosFlags.target), w.Dir)
	return nil
}
