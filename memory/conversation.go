package memory

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnansweredToolCall is returned by Validate when a tool call has no matching tool message.
	ErrUnansweredToolCall = errors.New("memory: tool call without result")
	// ErrOrphanToolResult is returned by Validate when a tool message answers no pending call.
	ErrOrphanToolResult = errors.New("memory: tool result without call")
)

// Conversation is the ordered transcript of one customer chat.
// It is safe for concurrent readers; one interaction at a time should write,
// which Store.Acquire enforces.
type Conversation struct {
	id string

	mu        sync.RWMutex
	msgs      []Message
	createdAt time.Time
	updatedAt time.Time
}

// NewConversation starts a transcript seeded with msgs (usually the system prompt).
func NewConversation(id string, msgs ...Message) *Conversation {
	now := time.Now()
	c := &Conversation{id: id, createdAt: now, updatedAt: now}
	for _, m := range msgs {
		c.msgs = append(c.msgs, m.Clone())
	}
	return c
}

func (c *Conversation) ID() string { return c.id }

// Append adds messages to the end of the transcript.
func (c *Conversation) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.msgs = append(c.msgs, m.Clone())
	}
	c.updatedAt = time.Now()
}

// Messages returns a snapshot copy of the transcript, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.Clone()
	}
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.msgs)
}

// Last returns the newest message, if any.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.msgs) == 0 {
		return Message{}, false
	}
	return c.msgs[len(c.msgs)-1].Clone(), true
}

// Replace swaps the whole transcript. Used by retention policies that trim
// old history between interactions; the result must still pass Validate.
func (c *Conversation) Replace(msgs []Message) error {
	if err := validate(msgs); err != nil {
		return err
	}
	cp := make([]Message, len(msgs))
	for i, m := range msgs {
		cp[i] = m.Clone()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = cp
	c.updatedAt = time.Now()
	return nil
}

func (c *Conversation) CreatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.createdAt
}

func (c *Conversation) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Validate checks tool call pairing: each assistant turn with tool calls is
// followed by exactly one tool message per call, in call order.
// A transcript may not end with unanswered calls.
func (c *Conversation) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return validate(c.msgs)
}

func validate(msgs []Message) error {
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		if m.Role == RoleTool {
			return fmt.Errorf("%w: index %d tool_call_id %q", ErrOrphanToolResult, i, m.ToolCallID)
		}
		if !m.HasToolCalls() {
			continue
		}
		for j, call := range m.ToolCalls {
			k := i + 1 + j
			if k >= len(msgs) {
				return fmt.Errorf("%w: index %d call %q", ErrUnansweredToolCall, i, call.ID)
			}
			r := msgs[k]
			if r.Role != RoleTool {
				return fmt.Errorf("%w: index %d call %q", ErrUnansweredToolCall, i, call.ID)
			}
			if r.ToolCallID != call.ID {
				return fmt.Errorf("%w: index %d got %q want %q", ErrOrphanToolResult, k, r.ToolCallID, call.ID)
			}
		}
		i += len(m.ToolCalls)
	}
	return nil
}
