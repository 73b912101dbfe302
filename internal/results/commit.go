package results

import (
	"bytes"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommitInfo identifies the code and the run that produced a result.
type CommitInfo struct {
	RunID     string    `json:"run_id"`
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadCommitInfo describes HEAD of the git work tree at dir. Git failures
// are logged and leave Hash and Message empty.
func ReadCommitInfo(dir string, logger *slog.Logger) CommitInfo {
	info := CommitInfo{RunID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	hash, err := git(dir, "rev-parse", "HEAD")
	if err != nil {
		if logger != nil {
			logger.Warn("commit info unavailable", "error", err)
		}
		return info
	}
	info.Hash = hash
	if msg, err := git(dir, "log", "-1", "--pretty=%B"); err == nil {
		info.Message = msg
	}
	return info
}

func git(dir string, args ...string) (string, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	var out bytes.Buffer
	cmd := exec.Command("git", args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
