package provider

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// OpenAIClient talks to the Chat Completions API, either on api.openai.com
// (or a compatible base URL) or on an Azure OpenAI deployment.
type OpenAIClient struct {
	name        string
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAI(cfg Config) *OpenAIClient {
	opts := commonOpenAIOptions(cfg)
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		name:        NameOpenAI,
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// NewAzure targets an Azure OpenAI resource; cfg.Model is the deployment name.
func NewAzure(cfg Config) *OpenAIClient {
	opts := commonOpenAIOptions(cfg)
	opts = append(opts,
		azure.WithEndpoint(cfg.BaseURL, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	)
	return &OpenAIClient{
		name:        NameAzure,
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func commonOpenAIOptions(cfg Config) []option.RequestOption {
	opts := []option.RequestOption{option.WithMaxRetries(max(cfg.MaxRetries, 0))}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return opts
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Complete(ctx context.Context, msgs []memory.Message, decls []tools.Declaration) (Result, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    openAIMessages(msgs),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	}
	if len(decls) > 0 {
		params.Tools = openAITools(decls)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, classify(c.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Result{}, malformed(c.name, "response has no choices")
	}
	msg := resp.Choices[0].Message

	var calls []memory.ToolCall
	for _, tc := range msg.ToolCalls {
		calls = append(calls, memory.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if err := checkCalls(c.name, calls); err != nil {
		return Result{}, err
	}
	return newResult(msg.Content, calls), nil
}

func openAIMessages(msgs []memory.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case memory.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case memory.RoleAssistant:
			if !m.HasToolCalls() {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case memory.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func openAITools(decls []tools.Declaration) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Parameters.JSON()),
			},
		})
	}
	return out
}
