package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"factbench/internal/llm"
	"factbench/internal/llm/llmtest"
)

func fastRetry(n int) llm.RetryConfig {
	return llm.RetryConfig{MaxAttempts: n, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Factor: 1}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	inner := llmtest.NewScripted(errors.New("503"), errors.New("503"), "ok")
	c := llm.WithRetry(inner, fastRetry(3), nil)

	resp, err := c.Invoke(context.Background(), []llm.Message{llm.User("hi")})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if inner.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", inner.CallCount())
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	inner := llmtest.NewScripted(errors.New("a"), errors.New("b"), "never")
	c := llm.WithRetry(inner, fastRetry(2), nil)

	_, err := c.Invoke(context.Background(), nil)
	if err == nil || err.Error() != "b" {
		t.Errorf("err = %v, want last error b", err)
	}
	if inner.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", inner.CallCount())
	}
}

func TestWithRetry_PermanentStopsImmediately(t *testing.T) {
	inner := llmtest.NewScripted(llm.Permanent(errors.New("401")), "never")
	c := llm.WithRetry(inner, fastRetry(5), nil)

	_, err := c.Invoke(context.Background(), nil)
	if !llm.IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
	if inner.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", inner.CallCount())
	}
}

func TestWithRetry_CanceledContext(t *testing.T) {
	inner := llmtest.NewScripted("never")
	c := llm.WithRetry(inner, fastRetry(3), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Invoke(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if inner.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", inner.CallCount())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	if _, err := llm.New(llm.Config{Provider: "mystery"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
