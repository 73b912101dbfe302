// Package llmtest provides scripted model clients for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"factbench/internal/llm"
)

// Scripted replays canned completions in order and records every request.
// An entry that is an error is returned as the call's error.
type Scripted struct {
	mu      sync.Mutex
	replies []any
	Calls   [][]llm.Message
}

// NewScripted queues replies; each is a string completion or an error.
func NewScripted(replies ...any) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Invoke(_ context.Context, msgs []llm.Message) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, msgs)
	if len(s.replies) == 0 {
		return nil, fmt.Errorf("llmtest: no scripted reply for call %d", len(s.Calls))
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	switch v := next.(type) {
	case error:
		return nil, v
	case string:
		return &llm.Response{Content: v}, nil
	default:
		return nil, fmt.Errorf("llmtest: unsupported reply type %T", next)
	}
}

// CallCount returns how many requests were made.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// LastUserMessage returns the final user message of the most recent call.
func (s *Scripted) LastUserMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Calls) == 0 {
		return ""
	}
	msgs := s.Calls[len(s.Calls)-1]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// Func adapts a function of the user prompt, for replies that depend on
// the request content.
func Func(fn func(prompt string) (string, error)) llm.Client {
	return llm.ClientFunc(func(_ context.Context, msgs []llm.Message) (*llm.Response, error) {
		var prompt string
		for _, m := range msgs {
			if m.Role == llm.RoleUser {
				prompt = m.Content
			}
		}
		out, err := fn(prompt)
		if err != nil {
			return nil, err
		}
		return &llm.Response{Content: out}, nil
	})
}
