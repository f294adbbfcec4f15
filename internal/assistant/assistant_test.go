package assistant_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/petasbytes/shop-agent/internal/assistant"
	"github.com/petasbytes/shop-agent/internal/provider"
	"github.com/petasbytes/shop-agent/internal/runner"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// fakeClient answers with fn; gate, when set, blocks every call until closed.
type fakeClient struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
	fn    func(n int, msgs []memory.Message) (provider.Result, error)
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) Complete(_ context.Context, msgs []memory.Message, _ []tools.Declaration) (provider.Result, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.gate != nil {
		<-c.gate
	}
	return c.fn(n, msgs)
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func answer(text string) func(int, []memory.Message) (provider.Result, error) {
	return func(int, []memory.Message) (provider.Result, error) {
		return provider.Result{Kind: provider.Final, Text: text}, nil
	}
}

func newAssistant(t *testing.T, client provider.Client, opts ...assistant.Option) (*assistant.Assistant, *shop.MemStore) {
	t.Helper()
	store := shop.NewMemStore([]shop.Product{
		{ID: "A1", Title: "培根蛋餅", Qty: 20, Price: 45},
		{ID: "X1", Title: "鮪魚蛋吐司", Qty: 5, Price: 45},
	})
	orders, err := shop.OpenOrderBook(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = orders.Close() })
	reg, err := tools.NewShopRegistry(store, orders)
	if err != nil {
		t.Fatal(err)
	}
	convs := memory.NewStore(memory.SystemMessage("你是小美"))
	return assistant.New(convs, runner.New(client, reg, runner.WithMaxIterations(3)), opts...), store
}

func TestHandle_Answer(t *testing.T) {
	a, _ := newAssistant(t, &fakeClient{fn: answer("早安！")})

	reply, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: " 早安 ", ReplyToken: "rt-1"})
	if err != nil {
		t.Fatal(err)
	}
	want := assistant.Reply{ConversationID: "u1", ReplyToken: "rt-1", Texts: []string{"早安！"}}
	if diff := cmp.Diff(want, reply); diff != "" {
		t.Fatalf("reply (-want +got):\n%s", diff)
	}
	conv, _ := a.Store().Get("u1")
	msgs := conv.Messages()
	if len(msgs) != 3 || msgs[1].Content != "早安" {
		t.Fatalf("transcript: %+v", msgs)
	}
}

func TestHandle_TranscribedEchoesFirst(t *testing.T) {
	a, _ := newAssistant(t, &fakeClient{fn: answer("好的")})

	reply, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: "我要一份培根蛋餅", Transcribed: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"我要一份培根蛋餅", "好的"}, reply.Texts); diff != "" {
		t.Fatalf("texts (-want +got):\n%s", diff)
	}
}

func TestHandle_FailuresApologize(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int, []memory.Message) (provider.Result, error)
	}{
		{"completion error", func(int, []memory.Message) (provider.Result, error) {
			return provider.Result{}, &provider.CompletionError{Kind: provider.KindTransport, Provider: "fake", Message: "connection refused"}
		}},
		{"depth exceeded", func(n int, _ []memory.Message) (provider.Result, error) {
			return provider.Result{Kind: provider.ToolRequest, ToolCalls: []memory.ToolCall{{ID: "c" + string(rune('0'+n)), Name: "show_menu", Arguments: "{}"}}}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newAssistant(t, &fakeClient{fn: tt.fn}, assistant.WithApology("不好意思，請稍後再試"))

			reply, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: "菜單"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reply.Failed || len(reply.Texts) != 1 || reply.Texts[0] != "不好意思，請稍後再試" {
				t.Fatalf("reply: %+v", reply)
			}
			conv, _ := a.Store().Get("u1")
			if err := conv.Validate(); err != nil {
				t.Fatalf("transcript invalid: %v", err)
			}
		})
	}
}

func TestHandle_InterruptedReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{fn: func(int, []memory.Message) (provider.Result, error) {
		cancel()
		return provider.Result{Kind: provider.Final, Text: "too late"}, nil
	}}
	a, _ := newAssistant(t, client)

	reply, err := a.Handle(ctx, assistant.Inbound{ConversationID: "u1", Text: "hi"})
	if !errors.Is(err, runner.ErrInterrupted) || len(reply.Texts) != 0 {
		t.Fatalf("want ErrInterrupted and no texts, got %+v %v", reply, err)
	}
}

func TestHandle_EmptyText(t *testing.T) {
	a, _ := newAssistant(t, &fakeClient{fn: answer("x")})
	if _, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: "  "}); !errors.Is(err, assistant.ErrEmptyText) {
		t.Fatalf("want ErrEmptyText, got %v", err)
	}
	if _, ok := a.Store().Get("u1"); ok {
		t.Fatal("conversation created for empty text")
	}
}

func TestHandle_CartBelongsToConversation(t *testing.T) {
	client := &fakeClient{fn: func(n int, _ []memory.Message) (provider.Result, error) {
		if n == 1 {
			return provider.Result{Kind: provider.ToolRequest, ToolCalls: []memory.ToolCall{
				{ID: "c1", Name: "add_cart", Arguments: `{"product_id":"A1","qty":2}`},
			}}, nil
		}
		return provider.Result{Kind: provider.Final, Text: "已加入"}, nil
	}}
	a, store := newAssistant(t, client)

	if _, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "line-user-7", Text: "兩份培根蛋餅"}); err != nil {
		t.Fatal(err)
	}
	cart, err := store.Cart(context.Background(), "line-user-7")
	if err != nil {
		t.Fatal(err)
	}
	if cart.Total != 90 {
		t.Fatalf("cart: %+v", cart)
	}
	if other, _ := store.Cart(context.Background(), "someone-else"); len(other.Lines) != 0 {
		t.Fatalf("cart leaked across customers: %+v", other)
	}
}

func TestHandle_SerializesPerConversation(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{gate: gate, fn: answer("ok")}
	a, _ := newAssistant(t, client)

	var wg sync.WaitGroup
	for _, text := range []string{"first", "second"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: text}); err != nil {
				t.Errorf("handle %s: %v", text, err)
			}
		}()
	}

	deadline := time.Now().Add(time.Second)
	for client.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if got := client.count(); got != 1 {
		t.Fatalf("second interaction started early: %d completions in flight", got)
	}
	close(gate)
	wg.Wait()

	conv, _ := a.Store().Get("u1")
	want := []memory.Role{memory.RoleSystem, memory.RoleUser, memory.RoleAssistant, memory.RoleUser, memory.RoleAssistant}
	var got []memory.Role
	for _, m := range conv.Messages() {
		got = append(got, m.Role)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("interleaved transcript (-want +got):\n%s", diff)
	}
}

func TestHandle_HistoryBudgetTrimsOldTurns(t *testing.T) {
	var seen []memory.Message
	client := &fakeClient{fn: func(_ int, msgs []memory.Message) (provider.Result, error) {
		seen = msgs
		return provider.Result{Kind: provider.Final, Text: "好"}, nil
	}}
	a, _ := newAssistant(t, client, assistant.WithHistoryBudget(30))

	for _, text := range []string{"第一句話", "第二句話", "第三句話", "第四句話"} {
		if _, err := a.Handle(context.Background(), assistant.Inbound{ConversationID: "u1", Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	if seen[0].Role != memory.RoleSystem {
		t.Fatalf("system prompt dropped: %+v", seen[0])
	}
	if seen[1].Role != memory.RoleUser || seen[1].Content == "第一句話" {
		t.Fatalf("old history kept: %+v", seen)
	}
	if seen[len(seen)-1].Content != "第四句話" {
		t.Fatalf("newest message missing: %+v", seen)
	}
}
