package runner_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/petasbytes/shop-agent/internal/provider"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

const convID = "conv-1"

type step struct {
	res    provider.Result
	err    error
	before func()
}

// scriptedClient replays steps in order and repeats the last one when the
// script runs out.
type scriptedClient struct {
	mu       sync.Mutex
	steps    []step
	requests [][]memory.Message
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, msgs []memory.Message, _ []tools.Declaration) (provider.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := len(c.requests)
	c.requests = append(c.requests, msgs)
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	s := c.steps[i]
	if s.before != nil {
		s.before()
	}
	return s.res, s.err
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func toolRequest(calls ...memory.ToolCall) step {
	return step{res: provider.Result{Kind: provider.ToolRequest, ToolCalls: calls}}
}

func final(text string) step {
	return step{res: provider.Result{Kind: provider.Final, Text: text}}
}

func call(id, name, args string) memory.ToolCall {
	return memory.ToolCall{ID: id, Name: name, Arguments: args}
}

type fixture struct {
	store    *shop.MemStore
	registry *tools.Registry
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	products, err := shop.LoadCSVFile(filepath.Join("..", "..", "data", "catalog.csv"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store := shop.NewMemStore(products)
	orders, err := shop.OpenOrderBook(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	t.Cleanup(func() { _ = orders.Close() })
	reg, err := tools.NewShopRegistry(store, orders)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return fixture{store: store, registry: reg}
}

func newConversation(text string) *memory.Conversation {
	return memory.NewConversation(convID, memory.SystemMessage("你是小美"), memory.UserMessage(text))
}

func customerCtx() context.Context {
	return memory.WithConversationID(context.Background(), convID)
}

func decode(t *testing.T, content string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		t.Fatalf("content is not a JSON object: %v\n%s", err, content)
	}
	return m
}

// errorCode returns error.code from error content, or "" for a result.
func errorCode(t *testing.T, content string) string {
	t.Helper()
	e, ok := decode(t, content)["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := e["code"].(string)
	return code
}
