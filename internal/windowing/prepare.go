package windowing

import (
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/memory"
)

// Stats summarizes one window preparation.
//
// Total counts included messages, the pinned system message among them.
// OverBudgetNewest is set when the newest group cannot fit alongside the
// pinned message; the window is then the pinned message alone.
type Stats struct {
	Total            int
	Budget           int
	Pinned           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the newest suffix of msgs that fits budget.
//
// A leading system message is always kept and its cost is charged first.
// Whole groups are taken newest to oldest until the next one would overflow,
// then leading groups that do not start with a user message are dropped so
// the window opens on a user turn. A budget of zero or less disables trimming.
// The returned slice never aliases msgs.
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	stats := Stats{Budget: budget}
	if len(msgs) == 0 {
		return nil, stats
	}
	if budget <= 0 {
		stats.Total = countAll(msgs, c)
		stats.IncludedGroups = len(GroupMessages(msgs))
		return clone(msgs), stats
	}

	var pinned []memory.Message
	rest := msgs
	if msgs[0].Role == memory.RoleSystem {
		pinned, rest = msgs[:1], msgs[1:]
		stats.Pinned = 1
		stats.Total = c.CountMessage(msgs[0])
	}

	groups := GroupMessages(rest)
	start := len(groups)
	total := stats.Total
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], rest)
		if total+cost > budget {
			if gi == len(groups)-1 {
				stats.OverBudgetNewest = true
				logger.DebugX("windowing", "reason=over_budget_newest_group budget=%d cost=%d", budget, cost)
			}
			break
		}
		total += cost
		start = gi
	}
	for start < len(groups) && rest[groups[start].Start].Role != memory.RoleUser {
		total -= c.CountGroup(groups[start], rest)
		start++
	}

	stats.Total = total
	stats.IncludedGroups = len(groups) - start
	stats.SkippedGroups = start

	out := clone(pinned)
	if start < len(groups) {
		out = append(out, clone(rest[groups[start].Start:])...)
	}
	return out, stats
}

func countAll(msgs []memory.Message, c TokenCounter) int {
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total
}

func clone(msgs []memory.Message) []memory.Message {
	out := make([]memory.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out
}
