// Package assistant turns one inbound customer message into the texts to send
// back, holding the conversation for the whole exchange.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/metrics"
	"github.com/petasbytes/shop-agent/internal/runner"
	"github.com/petasbytes/shop-agent/internal/telemetry"
	"github.com/petasbytes/shop-agent/internal/windowing"
	"github.com/petasbytes/shop-agent/memory"
)

// DefaultApology is sent when the interaction fails without a model answer.
const DefaultApology = "抱歉，小美現在忙不過來，請稍後再試一次，或聯繫客服人員。"

// ErrEmptyText is returned for an inbound message with no text.
var ErrEmptyText = errors.New("assistant: empty message text")

// Inbound is one customer utterance.
type Inbound struct {
	ConversationID string
	Text           string
	ReplyToken     string
	// Transcribed marks text produced by speech recognition; the reply then
	// echoes it first so the customer can see what was heard.
	Transcribed bool
}

// Reply is what to send back, in order.
type Reply struct {
	ConversationID string
	ReplyToken     string
	Texts          []string
	// Failed is set when Texts carries the apology instead of a model answer.
	Failed bool
}

type Assistant struct {
	store  *memory.Store
	runner *runner.Runner

	apology       string
	historyBudget int
	counter       windowing.TokenCounter
}

type Option func(*Assistant)

func WithApology(text string) Option {
	return func(a *Assistant) {
		if strings.TrimSpace(text) != "" {
			a.apology = text
		}
	}
}

// WithHistoryBudget trims old history to budget before each interaction.
// Zero keeps everything.
func WithHistoryBudget(budget int) Option {
	return func(a *Assistant) { a.historyBudget = budget }
}

func New(store *memory.Store, r *runner.Runner, opts ...Option) *Assistant {
	a := &Assistant{
		store:   store,
		runner:  r,
		apology: DefaultApology,
		counter: windowing.HeuristicCounter{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) Store() *memory.Store { return a.store }

// Handle runs one interaction. It blocks while another interaction holds the
// same conversation.
//
// Backend failures and the iteration cap produce a Reply with the apology and
// a nil error. ErrInterrupted and context errors are returned as is: there is
// nobody left to reply to.
func (a *Assistant) Handle(ctx context.Context, in Inbound) (Reply, error) {
	reply := Reply{ConversationID: in.ConversationID, ReplyToken: in.ReplyToken}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return reply, ErrEmptyText
	}

	conv, release, err := a.store.Acquire(ctx, in.ConversationID)
	if err != nil {
		return reply, err
	}
	defer release()

	a.retain(conv)
	conv.Append(memory.UserMessage(text))

	ctx = memory.WithConversationID(ctx, in.ConversationID)
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	logger.WithFields(map[string]any{
		"module":          "assistant",
		"conversation_id": in.ConversationID,
		"turn_id":         turnID,
		"input":           metrics.CountFeatures(text),
		"transcribed":     in.Transcribed,
	}).Info("inbound message")

	if in.Transcribed {
		reply.Texts = append(reply.Texts, text)
	}

	answer, err := a.runner.Run(ctx, conv)
	switch {
	case err == nil:
		reply.Texts = append(reply.Texts, answer)
	case errors.Is(err, runner.ErrInterrupted):
		return reply, err
	default:
		logger.ErrorX("assistant", "conversation %s: %v", in.ConversationID, err)
		reply.Texts = append(reply.Texts, a.apology)
		reply.Failed = true
	}
	return reply, nil
}

// retain applies the history budget. A trim that would leave an invalid
// transcript is skipped.
func (a *Assistant) retain(conv *memory.Conversation) {
	if a.historyBudget <= 0 {
		return
	}
	window, stats := windowing.PrepareSendWindow(conv.Messages(), a.historyBudget, a.counter)
	if stats.SkippedGroups == 0 {
		return
	}
	if stats.OverBudgetNewest {
		logger.WarnX("assistant", "conversation %s: newest exchange exceeds history budget %d", conv.ID(), a.historyBudget)
	}
	if err := conv.Replace(window); err != nil {
		logger.WarnX("assistant", "conversation %s: keep full history: %v", conv.ID(), err)
		return
	}
	logger.DebugX("assistant", "conversation %s: dropped %d groups, kept %d", conv.ID(), stats.SkippedGroups, stats.IncludedGroups)
}
