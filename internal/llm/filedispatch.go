package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"factbench/internal/datastore"
	"factbench/internal/logging"
)

// FileClientConfig configures the FileClient behavior.
type FileClientConfig struct {
	SignalDir       string        // directory for signal.json, prompts and answers
	PollInterval    time.Duration // how often to check for the answer; default 500ms
	Timeout         time.Duration // max time to wait for an answer; default 10min
	MaxStaleRejects int           // consecutive stale dispatch_id reads before aborting; default 10
	Logger          *slog.Logger  // nil = discard
}

// signalFile tells the external agent that a prompt is waiting.
type signalFile struct {
	Status     string `json:"status"` // waiting, processing, done, error
	DispatchID int64  `json:"dispatch_id"`
	PromptPath string `json:"prompt_path"`
	AnswerPath string `json:"answer_path"`
	Timestamp  string `json:"timestamp"`
	Error      string `json:"error,omitempty"`
}

// answerWrapper is written by the agent. It is accepted only when
// dispatch_id matches the current signal.
type answerWrapper struct {
	DispatchID int64     `json:"dispatch_id"`
	Data       *Response `json:"data"`
}

// FileClient hands prompts to an external agent through files: it writes
// the message list to prompt.json, announces it in signal.json with a
// monotonic dispatch_id and polls answer.json for a wrapper echoing that id.
type FileClient struct {
	cfg FileClientConfig
	log *slog.Logger

	mu         sync.Mutex
	dispatchID int64
}

// NewFileClient creates a file-based client with the given config.
func NewFileClient(cfg FileClientConfig) *FileClient {
	if cfg.SignalDir == "" {
		cfg.SignalDir = ".factbench/dispatch"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxStaleRejects <= 0 {
		cfg.MaxStaleRejects = 10
	}
	return &FileClient{cfg: cfg, log: logging.OrDiscard(cfg.Logger)}
}

// Paths returns the signal, prompt and answer file locations.
func (c *FileClient) Paths() (signal, prompt, answer string) {
	return filepath.Join(c.cfg.SignalDir, "signal.json"),
		filepath.Join(c.cfg.SignalDir, "prompt.json"),
		filepath.Join(c.cfg.SignalDir, "answer.json")
}

// Invoke serializes dispatches; the agent answers one prompt at a time.
func (c *FileClient) Invoke(ctx context.Context, msgs []Message) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.cfg.SignalDir, 0o755); err != nil {
		return nil, fmt.Errorf("file dispatch: create dir: %w", err)
	}
	signalPath, promptPath, answerPath := c.Paths()

	c.dispatchID++
	did := c.dispatchID
	dl := c.log.With("dispatch_id", did)

	// A leftover answer from an earlier dispatch would count against the
	// stale limit before the agent writes the new one.
	_ = os.Remove(answerPath)

	if err := datastore.WriteJSON(promptPath, msgs); err != nil {
		return nil, fmt.Errorf("file dispatch: write prompt: %w", err)
	}
	sig := signalFile{
		Status:     "waiting",
		DispatchID: did,
		PromptPath: promptPath,
		AnswerPath: answerPath,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := datastore.WriteJSON(signalPath, &sig); err != nil {
		return nil, fmt.Errorf("file dispatch: write signal: %w", err)
	}
	dl.Debug("signal written", "answer_path", answerPath, "timeout", c.cfg.Timeout)

	fail := func(msg string) {
		sig.Status = "error"
		sig.Error = msg
		_ = datastore.WriteJSON(signalPath, &sig)
	}

	deadline := time.NewTimer(c.cfg.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	staleCount := 0
	for polls := 1; ; polls++ {
		if resp, done, err := c.poll(dl, did, signalPath, answerPath, &staleCount); done {
			if err != nil {
				fail(err.Error())
				return nil, fmt.Errorf("file dispatch: %w", err)
			}
			sig.Status = "done"
			sig.Error = ""
			_ = datastore.WriteJSON(signalPath, &sig)
			dl.Debug("answer accepted", "polls", polls, "bytes", len(resp.Content))
			return resp, nil
		}

		select {
		case <-ctx.Done():
			fail("canceled")
			return nil, ctx.Err()
		case <-deadline.C:
			fail("timeout waiting for answer")
			return nil, fmt.Errorf("file dispatch: timeout after %s waiting for %s", c.cfg.Timeout, answerPath)
		case <-ticker.C:
		}
	}
}

// poll checks once for the agent's answer. done is false while waiting.
func (c *FileClient) poll(dl *slog.Logger, did int64, signalPath, answerPath string, staleCount *int) (*Response, bool, error) {
	var live signalFile
	if datastore.ReadJSON(signalPath, &live) == nil && live.DispatchID == did && live.Status == "error" {
		return nil, true, fmt.Errorf("agent error: %s", live.Error)
	}

	data, err := os.ReadFile(answerPath)
	if err != nil {
		*staleCount = 0
		return nil, false, nil
	}
	var w answerWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		// the agent may still be writing
		dl.Debug("answer not yet valid JSON", "error", err)
		return nil, false, nil
	}
	if w.DispatchID != did {
		*staleCount++
		dl.Debug("stale answer", "want", did, "got", w.DispatchID, "stale_streak", *staleCount)
		if *staleCount >= c.cfg.MaxStaleRejects {
			return nil, true, fmt.Errorf("%d consecutive answers with wrong dispatch_id (want %d, got %d)", *staleCount, did, w.DispatchID)
		}
		return nil, false, nil
	}
	if w.Data == nil {
		return nil, true, fmt.Errorf("answer for dispatch %d has no data", did)
	}
	return w.Data, true, nil
}

// CurrentDispatchID returns the latest dispatch_id.
func (c *FileClient) CurrentDispatchID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchID
}
