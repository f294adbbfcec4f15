package mcpserver_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
	"github.com/petasbytes/shop-agent/internal/mcpserver"
	"github.com/petasbytes/shop-agent/internal/runner"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/tools"
)

func newServer(t *testing.T) (*server.MCPServer, *shop.MemStore) {
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
	s := mcpserver.New(reg, mcpserver.Options{CustomerID: "claude-desktop"})
	rpc(t, s, 0, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})
	return s, store
}

// rpc sends one JSON-RPC request and returns the response as JSON text.
func rpc(t *testing.T, s *server.MCPServer, id int, method string, params any) string {
	t.Helper()
	req, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.HandleMessage(context.Background(), req)
	out, err := jsonutil.MarshalString(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return out
}

func TestListTools(t *testing.T) {
	s, _ := newServer(t)
	resp := rpc(t, s, 1, "tools/list", map[string]any{})

	names := map[string]bool{}
	for _, tool := range gjson.Get(resp, "result.tools").Array() {
		names[tool.Get("name").String()] = true
	}
	for _, want := range []string{"show_menu", "search_products", "add_cart", "show_cart", "send_order"} {
		if !names[want] {
			t.Fatalf("tool %s missing: %s", want, resp)
		}
	}
	for _, tool := range gjson.Get(resp, "result.tools").Array() {
		if tool.Get("name").String() != "add_cart" {
			continue
		}
		var required []string
		for _, r := range tool.Get("inputSchema.required").Array() {
			required = append(required, r.String())
		}
		if diff := cmp.Diff([]string{"product_id", "qty"}, required); diff != "" {
			t.Fatalf("add_cart required (-want +got):\n%s", diff)
		}
	}
}

func TestCallTool_AddCart(t *testing.T) {
	s, store := newServer(t)
	resp := rpc(t, s, 2, "tools/call", map[string]any{
		"name":      "add_cart",
		"arguments": map[string]any{"product_id": "A1", "qty": 2},
	})
	if gjson.Get(resp, "result.isError").Bool() {
		t.Fatalf("unexpected error result: %s", resp)
	}
	text := gjson.Get(resp, "result.content.0.text").String()
	if gjson.Get(text, "code").String() != tools.CodeAdded {
		t.Fatalf("content: %s", text)
	}
	cart, _ := store.Cart(context.Background(), "claude-desktop")
	if cart.Total != 90 {
		t.Fatalf("cart not attributed to MCP customer: %+v", cart)
	}
}

func TestCallTool_ErrorsAreToolErrors(t *testing.T) {
	s, store := newServer(t)
	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"add_cart", map[string]any{"product_id": "A1"}, runner.CodeInvalidArguments},
		{"delete_everything", map[string]any{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpc(t, s, 3, "tools/call", map[string]any{"name": tt.name, "arguments": tt.args})
			if tt.code == "" {
				// Unregistered names are rejected by the MCP layer itself.
				if !gjson.Get(resp, "error").Exists() {
					t.Fatalf("want JSON-RPC error: %s", resp)
				}
				return
			}
			if !gjson.Get(resp, "result.isError").Bool() {
				t.Fatalf("want isError result: %s", resp)
			}
			text := gjson.Get(resp, "result.content.0.text").String()
			if gjson.Get(text, "error.code").String() != tt.code {
				t.Fatalf("content: %s", text)
			}
		})
	}
	if cart, _ := store.Cart(context.Background(), "claude-desktop"); len(cart.Lines) != 0 {
		t.Fatalf("cart mutated: %+v", cart)
	}
}

func TestCallTool_DomainFailureIsNotToolError(t *testing.T) {
	s, _ := newServer(t)
	resp := rpc(t, s, 4, "tools/call", map[string]any{
		"name":      "add_cart",
		"arguments": map[string]any{"product_id": "X1", "qty": 100},
	})
	if gjson.Get(resp, "result.isError").Bool() {
		t.Fatalf("insufficient stock is a result, not a tool error: %s", resp)
	}
	text := gjson.Get(resp, "result.content.0.text").String()
	if gjson.Get(text, "code").String() != tools.CodeInsufficientStock {
		t.Fatalf("content: %s", text)
	}
}
