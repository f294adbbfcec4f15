package windowing_test

import (
	"github.com/petasbytes/shop-agent/memory"
)

func sys(text string) memory.Message  { return memory.SystemMessage(text) }
func user(text string) memory.Message { return memory.UserMessage(text) }
func asst(text string) memory.Message { return memory.AssistantMessage(text) }

// calls builds an assistant tool-call turn with empty arguments per id.
func calls(ids ...string) memory.Message {
	tcs := make([]memory.ToolCall, 0, len(ids))
	for _, id := range ids {
		tcs = append(tcs, memory.ToolCall{ID: id, Name: "t", Arguments: ""})
	}
	return memory.AssistantToolCallMessage("", tcs)
}

func result(id, content string) memory.Message {
	return memory.ToolMessage(id, "t", content)
}
