package metrics

import (
	"github.com/tidwall/gjson"

	"github.com/petasbytes/shop-agent/memory"
)

// Shape counts message kinds in a transcript.
type Shape struct {
	Messages    int `json:"messages"`
	UserTurns   int `json:"user_turns"`
	ToolCalls   int `json:"tool_calls"`
	ToolResults int `json:"tool_results"`
	// ToolErrors counts tool messages whose content is an error object.
	ToolErrors int `json:"tool_errors"`
}

func TranscriptShape(msgs []memory.Message) Shape {
	s := Shape{Messages: len(msgs)}
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleUser:
			s.UserTurns++
		case memory.RoleAssistant:
			s.ToolCalls += len(m.ToolCalls)
		case memory.RoleTool:
			s.ToolResults++
			if gjson.Get(m.Content, "error").IsObject() {
				s.ToolErrors++
			}
		}
	}
	return s
}
