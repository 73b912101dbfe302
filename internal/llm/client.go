// Package llm is the prompt-completion boundary: a chat-message request in,
// a completion out. Providers are the OpenAI and Anthropic APIs, or an
// external agent reached through signal files.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System and User are shorthands for building message lists.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Response is a model completion.
type Response struct {
	Content          string `json:"content"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Client sends a message list and returns the completion.
type Client interface {
	Invoke(ctx context.Context, msgs []Message) (*Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, msgs []Message) (*Response, error)

func (f ClientFunc) Invoke(ctx context.Context, msgs []Message) (*Response, error) {
	return f(ctx, msgs)
}

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderFile      = "file"
)

// Config selects and tunes a provider.
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string
	BaseURL     string

	// RequestMaxTry is the number of attempts per request, including the first.
	RequestMaxTry int
	RetryDelay    time.Duration

	// SignalDir is where the file provider exchanges prompts and answers.
	SignalDir    string
	PollInterval time.Duration
	Timeout      time.Duration
}

// New builds the configured provider client, wrapped with request retries
// when RequestMaxTry > 1.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	var c Client
	switch cfg.Provider {
	case ProviderOpenAI, "":
		c = NewOpenAI(cfg)
	case ProviderAnthropic:
		c = NewAnthropic(cfg)
	case ProviderFile:
		c = NewFileClient(FileClientConfig{
			SignalDir:    cfg.SignalDir,
			PollInterval: cfg.PollInterval,
			Timeout:      cfg.Timeout,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if cfg.RequestMaxTry > 1 {
		rc := DefaultRetryConfig()
		rc.MaxAttempts = cfg.RequestMaxTry
		if cfg.RetryDelay > 0 {
			rc.InitialDelay = cfg.RetryDelay
		}
		c = WithRetry(c, rc, logger)
	}
	return c, nil
}
