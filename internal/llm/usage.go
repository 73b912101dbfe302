package llm

import (
	"context"
	"sync"
	"time"

	"factbench/internal/format"
)

// UsageRecord captures token usage for a single model call.
type UsageRecord struct {
	Task             string    `json:"task"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Estimated        bool      `json:"estimated,omitempty"` // bytes / 4, provider reported nothing
	Failed           bool      `json:"failed,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	WallClockMs      int64     `json:"wall_clock_ms"`
}

// TaskUsage aggregates usage across all calls made for one task.
type TaskUsage struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	Calls            int   `json:"calls"`
	Failures         int   `json:"failures"`
	WallClockMs      int64 `json:"wall_clock_ms"`
}

// UsageSummary is the aggregate view of all model calls in a run.
type UsageSummary struct {
	TotalPromptTokens     int                  `json:"total_prompt_tokens"`
	TotalCompletionTokens int                  `json:"total_completion_tokens"`
	TotalTokens           int                  `json:"total_tokens"`
	TotalCalls            int                  `json:"total_calls"`
	TotalWallClockMs      int64                `json:"total_wall_clock_ms"`
	PerTask               map[string]TaskUsage `json:"per_task"`
}

// UsageTracker records and summarizes token usage.
type UsageTracker interface {
	Record(r UsageRecord)
	Summary() UsageSummary
}

// InMemoryUsageTracker is a thread-safe in-memory usage tracker.
type InMemoryUsageTracker struct {
	mu      sync.Mutex
	records []UsageRecord
}

func NewUsageTracker() *InMemoryUsageTracker {
	return &InMemoryUsageTracker{}
}

func (t *InMemoryUsageTracker) Record(r UsageRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

func (t *InMemoryUsageTracker) Summary() UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := UsageSummary{PerTask: make(map[string]TaskUsage)}
	for _, r := range t.records {
		s.TotalPromptTokens += r.PromptTokens
		s.TotalCompletionTokens += r.CompletionTokens
		s.TotalCalls++
		s.TotalWallClockMs += r.WallClockMs

		tu := s.PerTask[r.Task]
		tu.PromptTokens += r.PromptTokens
		tu.CompletionTokens += r.CompletionTokens
		tu.TotalTokens += r.PromptTokens + r.CompletionTokens
		tu.Calls++
		if r.Failed {
			tu.Failures++
		}
		tu.WallClockMs += r.WallClockMs
		s.PerTask[r.Task] = tu
	}
	s.TotalTokens = s.TotalPromptTokens + s.TotalCompletionTokens
	return s
}

type trackedClient struct {
	next    Client
	tracker UsageTracker
	task    string
}

// Tracked wraps c so every call is recorded under task.
func Tracked(c Client, tracker UsageTracker, task string) Client {
	if tracker == nil {
		return c
	}
	return &trackedClient{next: c, tracker: tracker, task: task}
}

func (t *trackedClient) Invoke(ctx context.Context, msgs []Message) (*Response, error) {
	start := time.Now()
	resp, err := t.next.Invoke(ctx, msgs)
	rec := UsageRecord{
		Task:        t.task,
		Timestamp:   start,
		WallClockMs: time.Since(start).Milliseconds(),
		Failed:      err != nil,
	}
	if resp != nil {
		rec.PromptTokens = resp.PromptTokens
		rec.CompletionTokens = resp.CompletionTokens
		if rec.PromptTokens == 0 && rec.CompletionTokens == 0 {
			rec.PromptTokens = EstimateTokens(messageBytes(msgs))
			rec.CompletionTokens = EstimateTokens(len(resp.Content))
			rec.Estimated = true
		}
	}
	t.tracker.Record(rec)
	return resp, err
}

func messageBytes(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}

// EstimateTokens converts byte count to estimated token count (bytes / 4).
func EstimateTokens(bytes int) int {
	if bytes <= 0 {
		return 0
	}
	return bytes / 4
}

// FormatUsage renders a per-task usage table.
func FormatUsage(s UsageSummary, mode format.Mode) string {
	tbl := format.NewTable(mode, "Task", "Calls", "Failures", "Prompt", "Completion", "Wall clock").
		Right(2, 3, 4, 5, 6)
	for _, task := range format.SortedKeys(s.PerTask) {
		tu := s.PerTask[task]
		tbl.Row(task, tu.Calls, tu.Failures,
			format.FmtTokens(tu.PromptTokens), format.FmtTokens(tu.CompletionTokens),
			format.FmtDuration(time.Duration(tu.WallClockMs)*time.Millisecond))
	}
	tbl.Footer("TOTAL", s.TotalCalls, "",
		format.FmtTokens(s.TotalPromptTokens), format.FmtTokens(s.TotalCompletionTokens),
		format.FmtDuration(time.Duration(s.TotalWallClockMs)*time.Millisecond))
	return format.Section("Model usage", tbl)
}
