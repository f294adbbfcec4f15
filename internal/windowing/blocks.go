// Package windowing trims a transcript to a size budget without separating
// an assistant tool-call turn from the tool messages that answer it.
package windowing

import (
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/memory"
)

// GroupKind denotes the atomic unit type when preparing a window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	// GroupExchange is an assistant tool-call turn plus every tool message
	// answering it.
	GroupExchange
)

// Group is the contiguous span msgs[Start:End].
type Group struct {
	Kind  GroupKind
	Start int
	End   int
}

// GroupMessages splits msgs into atomic units.
//
// An exchange is an assistant message with tool calls immediately followed by
// exactly one tool message per call id, in any order. Anything else, including
// a partial or over-answered exchange, falls back to singletons.
func GroupMessages(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if msgs[i].HasToolCalls() {
			end, reason := exchangeEnd(msgs, i)
			if reason == "" {
				groups = append(groups, Group{Kind: GroupExchange, Start: i, End: end})
				i = end
				continue
			}
			logger.DebugX("windowing", "exclude exchange: reason=%s idx=%d", reason, i)
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

// exchangeEnd returns the exclusive end of the exchange starting at i, or a
// reason code when the following tool messages do not answer it exactly.
func exchangeEnd(msgs []memory.Message, i int) (int, string) {
	pending := make(map[string]struct{}, len(msgs[i].ToolCalls))
	for _, tc := range msgs[i].ToolCalls {
		pending[tc.ID] = struct{}{}
	}
	j := i + 1
	for ; j < len(msgs) && msgs[j].Role == memory.RoleTool; j++ {
		id := msgs[j].ToolCallID
		if _, ok := pending[id]; !ok {
			return 0, "extra_results"
		}
		delete(pending, id)
	}
	if j == i+1 {
		return 0, "not_followed_by_tool"
	}
	if len(pending) > 0 {
		return 0, "missing_results"
	}
	return j, ""
}
