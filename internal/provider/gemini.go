package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/"

// GeminiClient talks to the Gemini API through google.golang.org/genai.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

var _ Client = (*GeminiClient)(nil)

func NewGemini(ctx context.Context, cfg Config) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: defaultGeminiBaseURL,
		},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}, nil
}

func (c *GeminiClient) Name() string { return NameGemini }

func (c *GeminiClient) Complete(ctx context.Context, msgs []memory.Message, decls []tools.Declaration) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	system, rest := splitSystem(msgs)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.temperature)),
		MaxOutputTokens: int32(c.maxTokens),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(decls) > 0 {
		config.Tools = geminiTools(decls)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, geminiContents(rest), config)
	if err != nil {
		return Result{}, classify(NameGemini, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, malformed(NameGemini, "response has no candidate content")
	}

	var text []string
	var calls []memory.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text = append(text, part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			args, err := jsonutil.MarshalString(fc.Args)
			if err != nil || fc.Args == nil {
				args = "{}"
			}
			id := fc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			calls = append(calls, memory.ToolCall{ID: id, Name: fc.Name, Arguments: args})
		}
	}
	if err := checkCalls(NameGemini, calls); err != nil {
		return Result{}, err
	}
	return newResult(strings.Join(text, ""), calls), nil
}

// geminiContents maps the transcript onto user/model contents. Runs of tool
// messages become one user content of function responses.
func geminiContents(msgs []memory.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	var responses []*genai.Part
	flush := func() {
		if len(responses) > 0 {
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: responses})
			responses = nil
		}
	}
	for _, m := range msgs {
		if m.Role == memory.RoleTool {
			responses = append(responses, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       m.ToolCallID,
				Name:     m.Name,
				Response: functionResponse(m.Content),
			}})
			continue
		}
		flush()
		switch m.Role {
		case memory.RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case memory.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := jsonutil.UnmarshalString(tc.Arguments, &args); err != nil {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: genai.RoleModel, Parts: parts})
			}
		}
	}
	flush()
	return out
}

// functionResponse uses the "output"/"error" keys Gemini expects.
func functionResponse(content string) map[string]any {
	var v any
	if err := jsonutil.UnmarshalString(content, &v); err != nil {
		return map[string]any{"output": content}
	}
	if obj, ok := v.(map[string]any); ok {
		if e, ok := obj["error"]; ok {
			return map[string]any{"error": e}
		}
	}
	return map[string]any{"output": v}
}

func geminiTools(decls []tools.Declaration) []*genai.Tool {
	fns := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, &genai.FunctionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJsonSchema: d.Parameters.JSON(),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fns}}
}
