package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/shop-agent/memory"
)

// TokenCounter estimates the input cost of messages or groups.
type TokenCounter interface {
	CountMessage(m memory.Message) int
	CountGroup(g Group, all []memory.Message) int
}

// HeuristicCounter counts runes of content, tool names and argument text,
// plus a fixed overhead per message and per tool call.
type HeuristicCounter struct{}

// Changing this requires updating the counter tests.
const blockOverhead = 4

func (HeuristicCounter) CountMessage(m memory.Message) int {
	total := utf8.RuneCountInString(m.Content) + blockOverhead
	for _, tc := range m.ToolCalls {
		total += utf8.RuneCountInString(tc.Name) + utf8.RuneCountInString(tc.Arguments) + blockOverhead
	}
	return total
}

func (h HeuristicCounter) CountGroup(g Group, all []memory.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
