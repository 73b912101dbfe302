package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"factbench/internal/config"
	"factbench/internal/datastore"
	"factbench/internal/format"
	"factbench/internal/pipeline"
	"factbench/internal/results"
	"factbench/internal/telemetry"
)

var compareFlags struct {
	answer      string
	reference   string
	factChecker string
	json        bool
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Fact-check one text against another",
	Long: `Compare extracts triplets from --answer and --reference and judges each
answer triplet against the reference triplets. The result is printed as a
table (or JSON with --json) and, with save_result, written to <experiment dir>/text_match.json.`,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.answer, "answer", "", "Text to check (required)")
	f.StringVar(&compareFlags.reference, "reference", "", "Reference text (required)")
	f.StringVar(&compareFlags.factChecker, "fact-checker", "", "Fact checker override")
	f.BoolVar(&compareFlags.json, "json", false, "Print the result as JSON instead of a table")
	_ = compareCmd.MarkFlagRequired("answer")
	_ = compareCmd.MarkFlagRequired("reference")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	var o config.Overrides
	if cmd.Flags().Changed("fact-checker") {
		o.FactChecker = &compareFlags.factChecker
	}
	cfg, err := loadConfig(cmd, o)
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

	st, err := newStack(ctx, cfg, bank, telemetry.New())
	if err != nil {
		return err
	}
	gen, err := st.triplets()
	if err != nil {
		return err
	}
	sys, err := st.system(nil, gen)
	if err != nil {
		return err
	}
	match, err := sys.DirectTextMatch(ctx, compareFlags.answer, compareFlags.reference)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if compareFlags.json {
		data, err := json.MarshalIndent(match, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprint(out, pipeline.FormatTextMatch(match, format.ASCII))
	}

	if cfg.SaveResult {
		w := results.NewWriter(cfg.Paths.ResultsBase, cfg.RunName(), results.Options{Config: cfg, Bank: bank})
		if err := w.Init(); err != nil {
			return err
		}
		if err := datastore.WriteJSON(w.Path(results.TextMatchFile), match); err != nil {
			return fmt.Errorf("save text match: %w", err)
		}
	}
	return nil
}
