package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"factbench/internal/datastore"
	"factbench/internal/triplet"
)

// StripInstructions keeps the lines of a rendered prompt that precede the
// first line mentioning "Task", i.e. the sample data without directions.
func StripInstructions(prompt string) string {
	var kept []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.Contains(line, "Task") {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Build makes a demonstration from a rendered prompt and the answer the
// model should have given. The output is shown after the final answer
// marker, as the prompts ask.
func Build(prompt string, input, output any) (Demo, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return Demo{}, fmt.Errorf("demo: marshal input: %w", err)
	}
	out, err := json.Marshal(output)
	if err != nil {
		return Demo{}, fmt.Errorf("demo: marshal output: %w", err)
	}
	answer := string(out)
	if s, ok := output.(string); ok {
		answer = s
	}
	text := fmt.Sprintf("Input:\n%s\nOutput:\n%s %s\n\n", StripInstructions(prompt), triplet.FinalAnswerMarker, answer)
	return Demo{Text: text, Input: in, Output: out}, nil
}

// Writer saves demonstrations under <dir>/<task>/<id>.json.
type Writer struct {
	Dir string
}

func (w Writer) Save(ctx context.Context, task string, id int, d Demo) error {
	return datastore.NewFileStore[Demo](filepath.Join(w.Dir, task)).Save(ctx, id, d)
}
