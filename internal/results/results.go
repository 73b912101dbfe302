// Package results persists the outputs of an experiment: configuration
// snapshots once per experiment directory, and metrics and predictions
// rewritten after every sample.
package results

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"factbench/internal/datastore"
	"factbench/internal/logging"
	"factbench/internal/metrics"
	"factbench/internal/prompt"
)

// File names inside an experiment directory.
const (
	ConfigFile            = "config.json"
	PromptBankFile        = "prompt_bank.json"
	CommitInfoFile        = "commit_info.json"
	MetricsFile           = "metrics.json"
	PredictionsFile       = "predictions.json"
	HlcntnMetricsFile     = "hlcntn_metrics.json"
	HlcntnPredictionsFile = "hlcntn_predictions.json"
	LogFile               = "log.txt"
	TelemetryFile         = "run.prom"
	TextMatchFile         = "text_match.json"
)

// Run names accepted by Save.
const (
	RunOriginal      = "original"
	RunHallucination = "hlcntn"
)

// Writer owns one experiment directory.
type Writer struct {
	Dir string

	config  any
	bank    *prompt.Bank
	repoDir string
	log     *slog.Logger
	existed bool

	once    sync.Once
	initErr error
}

// Options configures a Writer.
type Options struct {
	// Config is snapshotted to config.json.
	Config any
	// Bank is snapshotted to prompt_bank.json.
	Bank *prompt.Bank
	// RepoDir is the git work tree described in commit_info.json; empty
	// means the current directory.
	RepoDir string
	Logger  *slog.Logger
}

// NewWriter returns a writer for base/name. Whether the directory is new
// is decided here, before OpenLog or Init create it.
func NewWriter(base, name string, o Options) *Writer {
	dir := filepath.Join(base, name)
	_, err := os.Stat(dir)
	return &Writer{
		Dir:     dir,
		existed: err == nil,
		config:  o.Config,
		bank:    o.Bank,
		repoDir: o.RepoDir,
		log:     logging.OrDiscard(o.Logger),
	}
}

// Path returns the path of file inside the experiment directory.
func (w *Writer) Path(file string) string { return filepath.Join(w.Dir, file) }

// SetLogger replaces the writer's logger, e.g. once the run log is open.
func (w *Writer) SetLogger(l *slog.Logger) { w.log = logging.OrDiscard(l) }

// OpenLog creates the experiment directory if needed and opens log.txt
// for appending.
func (w *Writer) OpenLog() (*os.File, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("results: create %s: %w", w.Dir, err)
	}
	f, err := os.OpenFile(w.Path(LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("results: open run log: %w", err)
	}
	return f, nil
}

// Init creates the experiment directory. Snapshots are written only when
// the directory did not exist, so a resumed experiment keeps its
// original configuration record.
func (w *Writer) Init() error {
	w.once.Do(func() { w.initErr = w.init() })
	return w.initErr
}

func (w *Writer) init() error {
	if w.existed {
		w.log.Info("experiment directory exists, keeping snapshots", "dir", w.Dir)
		return nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("results: create %s: %w", w.Dir, err)
	}
	if w.config != nil {
		if err := datastore.WriteJSON(w.Path(ConfigFile), w.config); err != nil {
			return fmt.Errorf("results: %w", err)
		}
	}
	if w.bank != nil {
		if err := w.bank.Snapshot(w.Path(PromptBankFile)); err != nil {
			return fmt.Errorf("results: %w", err)
		}
	}
	if err := datastore.WriteJSON(w.Path(CommitInfoFile), ReadCommitInfo(w.repoDir, w.log)); err != nil {
		return fmt.Errorf("results: %w", err)
	}
	w.log.Info("experiment directory created", "dir", w.Dir)
	return nil
}

// Save rewrites the metrics and predictions of run. Predictions without
// answer triplets are not persisted.
func (w *Writer) Save(run string, report *metrics.Report, preds []metrics.Prediction) error {
	if err := w.Init(); err != nil {
		return err
	}
	metricsFile, predsFile := MetricsFile, PredictionsFile
	switch run {
	case RunOriginal:
	case RunHallucination:
		metricsFile, predsFile = HlcntnMetricsFile, HlcntnPredictionsFile
	default:
		return fmt.Errorf("results: unknown run %q", run)
	}
	kept := make([]metrics.Prediction, 0, len(preds))
	for _, p := range preds {
		if len(p.AnswerTriplets) > 0 {
			kept = append(kept, p)
		}
	}
	if err := datastore.WriteJSON(w.Path(metricsFile), report); err != nil {
		return fmt.Errorf("results: %w", err)
	}
	if err := datastore.WriteJSON(w.Path(predsFile), kept); err != nil {
		return fmt.Errorf("results: %w", err)
	}
	return nil
}

// LoadPredictions reads a predictions file written by Save.
func LoadPredictions(path string) ([]metrics.Prediction, error) {
	var preds []metrics.Prediction
	if err := datastore.ReadJSON(path, &preds); err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	return preds, nil
}
