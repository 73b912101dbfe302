package mcp

import (
	"context"
	"log/slog"
	"os"
	"time"

	"factbench/internal/logging"
)

// ParentPollInterval is how often WatchParent checks the parent PID.
var ParentPollInterval = 2 * time.Second

// WatchParent calls cancelFn once the parent process goes away, so a server
// started by an editor does not outlive it.
//
// It must not read stdin: the StdioTransport owns it and stolen bytes
// corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, logger *slog.Logger, cancelFn context.CancelFunc) {
	log := logging.OrDiscard(logger)
	ppid := os.Getppid()
	interval := ParentPollInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					log.Warn("parent process died, shutting down", "parent_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
