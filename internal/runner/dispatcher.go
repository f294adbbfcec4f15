package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/telemetry"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// Error codes carried in error content.
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
	CodeInternalError    = "internal_error"
)

const internalErrorMessage = "the tool failed to run; try again later"

// ErrorContent is the JSON body of a tool message for a call that could not
// be carried out.
type ErrorContent struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Dispatcher executes tool calls against a registry. Failures never escape:
// they are serialized into the tool message for the model to read.
type Dispatcher struct {
	registry *tools.Registry
}

func NewDispatcher(reg *tools.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Dispatch runs calls one at a time in order and returns one tool message per
// call, in the same order. If ctx is done, Dispatch stops before starting the
// next call and returns the messages produced so far; a call already running
// is not cancelled.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []memory.ToolCall) []memory.Message {
	out := make([]memory.Message, 0, len(calls))
	for _, call := range calls {
		if ctx.Err() != nil {
			break
		}
		out = append(out, d.Execute(context.WithoutCancel(ctx), call))
	}
	return out
}

// Execute runs a single call and returns its tool message.
func (d *Dispatcher) Execute(ctx context.Context, call memory.ToolCall) memory.Message {
	start := time.Now()
	content, errCode := d.execute(ctx, call)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"tool_name":   call.Name,
		"duration_ms": time.Since(start).Milliseconds(),
		"input_size":  len(call.Arguments),
		"output_size": len(content),
		"turn_id":     turnID,
		"error":       nil,
	}
	if errCode != "" {
		fields["error"] = errCode
	}
	telemetry.Emit("tool_exec", fields)

	return memory.ToolMessage(call.ID, call.Name, content)
}

func (d *Dispatcher) execute(ctx context.Context, call memory.ToolCall) (string, string) {
	tool, err := d.registry.Resolve(call.Name)
	if err != nil {
		logger.WarnX("runner", "[Dispatcher] %v", err)
		return errorContent(CodeUnknownTool, err.Error(), ""), CodeUnknownTool
	}

	args := json.RawMessage(call.Arguments)
	if err := tools.ValidateArguments(tool.Declaration(), args); err != nil {
		return invalidArguments(call.Name, err)
	}

	result, err := invoke(ctx, tool, args)
	if err != nil {
		var verr *tools.ValidationError
		if errors.As(err, &verr) {
			return invalidArguments(call.Name, err)
		}
		logger.ErrorX("runner", "[Dispatcher] tool %s call %s failed: %v", call.Name, call.ID, err)
		return errorContent(CodeInternalError, internalErrorMessage, ""), CodeInternalError
	}

	content, err := jsonutil.MarshalString(result)
	if err != nil {
		logger.ErrorX("runner", "[Dispatcher] tool %s result not serializable: %v", call.Name, err)
		return errorContent(CodeInternalError, internalErrorMessage, ""), CodeInternalError
	}
	return content, ""
}

func invalidArguments(tool string, err error) (string, string) {
	logger.InfoX("runner", "[Dispatcher] rejected arguments for %s: %v", tool, err)
	field := ""
	var verr *tools.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	return errorContent(CodeInvalidArguments, err.Error(), field), CodeInvalidArguments
}

// invoke calls t, converting a panic into an error.
func invoke(ctx context.Context, t tools.Tool, args json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return t.Invoke(ctx, args)
}

func errorContent(code, message, field string) string {
	s, err := jsonutil.MarshalString(ErrorContent{Error: ErrorDetail{Code: code, Message: message, Field: field}})
	if err != nil {
		return `{"error":{"code":"` + CodeInternalError + `","message":"` + internalErrorMessage + `"}}`
	}
	return s
}
