package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"factbench/internal/config"
)

var sampleFlags struct {
	sampleIdx int
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print one QA sample and its reference passages",
	RunE:  runSample,
}

func init() {
	sampleCmd.Flags().IntVar(&sampleFlags.sampleIdx, "sample-idx", 0, "Position of the sample in the filtered QA set")
}

func runSample(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	corpus, qa, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	idx := sampleFlags.sampleIdx
	if idx < 0 || idx >= len(qa) {
		return fmt.Errorf("sample index %d out of range (%d samples)", idx, len(qa))
	}
	r := qa[idx]

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sample %d (id %d)\n", idx, r.ID)
	fmt.Fprintf(out, "Question: %s\n", r.Question)
	if r.Answer != "" {
		fmt.Fprintf(out, "Answer:   %s\n", r.Answer)
	}
	fmt.Fprintf(out, "Passages: %d\n", len(r.RelevantPassageIDs))
	for _, id := range r.RelevantPassageIDs {
		text, _ := corpus.Passage(id)
		fmt.Fprintf(out, "\n[%d] %s\n", id, text)
	}
	return nil
}
