package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int
}

var _ Client = (*AnthropicClient)(nil)

// NewAnthropic builds a client; an empty APIKey falls back to ANTHROPIC_API_KEY.
func NewAnthropic(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithMaxRetries(max(cfg.MaxRetries, 0))}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *AnthropicClient) Name() string { return NameAnthropic }

func (c *AnthropicClient) Complete(ctx context.Context, msgs []memory.Message, decls []tools.Declaration) (Result, error) {
	system, rest := splitSystem(msgs)
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(c.maxTokens),
		Messages:    anthropicMessages(rest),
		Temperature: anthropic.Float(c.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(decls) > 0 {
		params.Tools = anthropicTools(decls)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Result{}, classify(NameAnthropic, err)
	}
	if msg == nil {
		return Result{}, malformed(NameAnthropic, "empty response")
	}

	var text []string
	var calls []memory.ToolCall
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				text = append(text, v.Text)
			}
		case anthropic.ToolUseBlock:
			calls = append(calls, memory.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: v.JSON.Input.Raw(),
			})
		}
	}
	if err := checkCalls(NameAnthropic, calls); err != nil {
		return Result{}, err
	}
	return newResult(strings.Join(text, "\n"), calls), nil
}

// anthropicMessages maps the transcript onto user/assistant turns. Runs of
// tool messages become one user turn of tool_result blocks.
func anthropicMessages(msgs []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	var results []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}
	for _, m := range msgs {
		if m.Role == memory.RoleTool {
			isError := gjson.Get(m.Content, "error").Exists()
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, isError))
			continue
		}
		flush()
		switch m.Role {
		case memory.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case memory.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, toolInput(tc.Arguments), tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

// toolInput passes valid argument objects through untouched.
func toolInput(args string) any {
	if gjson.Valid(args) && gjson.Parse(args).IsObject() {
		return json.RawMessage(args)
	}
	return map[string]any{}
}

func anthropicTools(decls []tools.Declaration) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := d.Parameters.JSON()
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   d.Parameters.Required,
			},
		}})
	}
	return out
}
