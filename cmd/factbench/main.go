package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config         string
	envFile        string
	experimentName string
	loggerLevel    string
}

var rootCmd = &cobra.Command{
	Use:   "factbench",
	Short: "Evaluate triplet-based hallucination fact checkers on BioASQ",
	Long: `factbench answers biomedical questions from reference passages, extracts
knowledge triplets from the answers and judges each triplet against the
triplets of the references. It scores the checker on generated answers and
on answers with planted hallucinations.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.config, "config", "c", "", "Experiment config file (YAML or JSON); empty = built-in defaults")
	pf.StringVarP(&rootFlags.experimentName, "experiment-name", "e", "", "Experiment name; outputs go to <results_base>/<name>")
	pf.StringVar(&rootFlags.envFile, "env-file", ".env", "Dotenv file with API keys and REPO_PATH")
	pf.StringVar(&rootFlags.loggerLevel, "logger-level", "", "Log level (DEBUG, INFO, WARNING, ERROR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(demosCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
