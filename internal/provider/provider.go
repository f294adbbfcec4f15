// Package provider turns a transcript plus tool declarations into one model
// completion. Each backend adapts a vendor SDK to the Client interface and
// reports failures as *CompletionError.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// ResultKind says whether the model answered or asked for tools.
type ResultKind int

const (
	Final ResultKind = iota
	ToolRequest
)

func (k ResultKind) String() string {
	switch k {
	case Final:
		return "final"
	case ToolRequest:
		return "tool_request"
	default:
		return "unknown"
	}
}

// Result is one completion. ToolCalls is non-empty exactly when Kind is
// ToolRequest; Text may accompany a tool request.
type Result struct {
	Kind      ResultKind
	Text      string
	ToolCalls []memory.ToolCall
}

// Client requests a completion over the full transcript. Implementations do
// not retry on their own unless configured to.
type Client interface {
	Name() string
	Complete(ctx context.Context, msgs []memory.Message, decls []tools.Declaration) (Result, error)
}

// Backend names accepted by New.
const (
	NameOpenAI    = "openai"
	NameAzure     = "azure"
	NameAnthropic = "anthropic"
	NameGemini    = "gemini"
)

// Config selects and tunes a backend.
type Config struct {
	Name        string
	APIKey      string
	BaseURL     string // Azure: resource endpoint
	APIVersion  string // Azure only
	Model       string // Azure: deployment name
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultMaxTokens   = 1000
)

// New builds the backend named by cfg.Name.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	switch strings.ToLower(cfg.Name) {
	case NameOpenAI, "":
		return NewOpenAI(cfg), nil
	case NameAzure:
		if cfg.BaseURL == "" || cfg.APIVersion == "" {
			return nil, fmt.Errorf("provider: azure needs base_url and api_version")
		}
		return NewAzure(cfg), nil
	case NameAnthropic:
		return NewAnthropic(cfg), nil
	case NameGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q", cfg.Name)
	}
}

// newResult applies the shared rule that a tool request without calls is a
// final answer.
func newResult(text string, calls []memory.ToolCall) Result {
	if len(calls) == 0 {
		return Result{Kind: Final, Text: text}
	}
	return Result{Kind: ToolRequest, Text: text, ToolCalls: calls}
}

// checkCalls rejects tool calls a dispatcher could not address.
func checkCalls(provider string, calls []memory.ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for i, c := range calls {
		if c.Name == "" {
			return malformed(provider, "tool call %d has no name", i)
		}
		if c.ID == "" {
			return malformed(provider, "tool call %d (%s) has no id", i, c.Name)
		}
		if _, dup := seen[c.ID]; dup {
			return malformed(provider, "duplicate tool call id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// splitSystem separates leading system messages, which some backends take
// out of band, from the rest of the transcript.
func splitSystem(msgs []memory.Message) (string, []memory.Message) {
	var sys []string
	rest := make([]memory.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == memory.RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(sys, "\n\n"), rest
}
