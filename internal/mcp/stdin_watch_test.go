package mcp_test

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	mcpserver "factbench/internal/mcp"
)

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	mcpserver.WatchParent(ctx, nil, cancel)

	cancel()

	// The goroutine must exit without panicking after cancel.
	time.Sleep(50 * time.Millisecond)
	if ctx.Err() == nil {
		t.Fatal("context should be canceled")
	}
}

func TestWatchParent_DoesNotConsumeStdin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()

	mcpserver.WatchParent(ctx, nil, cancel)
	time.Sleep(50 * time.Millisecond)

	msg := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"
	go func() {
		pw.Write([]byte(msg))
		time.Sleep(100 * time.Millisecond)
		pw.Close()
	}()

	scanner := bufio.NewScanner(pr)
	if !scanner.Scan() {
		t.Fatalf("reader got no data; err=%v", scanner.Err())
	}
	got := scanner.Text()
	want := `{"jsonrpc":"2.0","id":1,"method":"initialize"}`
	if got != want {
		t.Fatalf("reader got corrupted data:\n  got:  %q\n  want: %q", got, want)
	}
}

func TestWatchParent_ParentAlive(t *testing.T) {
	old := mcpserver.ParentPollInterval
	mcpserver.ParentPollInterval = 10 * time.Millisecond
	t.Cleanup(func() { mcpserver.ParentPollInterval = old })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watched, stop := context.WithCancel(ctx)
	defer stop()

	mcpserver.WatchParent(ctx, nil, stop)
	time.Sleep(60 * time.Millisecond)
	if watched.Err() != nil {
		t.Fatal("watcher canceled while the parent is alive")
	}
}
