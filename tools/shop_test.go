package tools_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

type shopFixture struct {
	store  *shop.MemStore
	orders *shop.OrderBook
	reg    *tools.Registry
}

func newShopFixture(t *testing.T) *shopFixture {
	t.Helper()
	store := shop.NewMemStore([]shop.Product{
		{ID: "A1", Title: "培根蛋餅", Qty: 20, Price: 45},
		{ID: "A2", Title: "火腿蛋餅", Qty: 15, Price: 40},
		{ID: "X1", Title: "鮪魚蛋吐司", Qty: 5, Price: 45},
	})
	orders, err := shop.OpenOrderBook(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	t.Cleanup(func() { _ = orders.Close() })
	reg, err := tools.NewShopRegistry(store, orders)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return &shopFixture{store: store, orders: orders, reg: reg}
}

func (f *shopFixture) invoke(t *testing.T, ctx context.Context, name, args string) any {
	t.Helper()
	tool, err := f.reg.Resolve(name)
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	out, err := tool.Invoke(ctx, json.RawMessage(args))
	if err != nil {
		t.Fatalf("invoke %s: %v", name, err)
	}
	return out
}

func TestShopTools_SearchAndMenu(t *testing.T) {
	f := newShopFixture(t)
	ctx := context.Background()

	found := f.invoke(t, ctx, "search_products", `{"keyword":"培根蛋餅"}`).([]shop.Product)
	if len(found) != 1 || found[0].ID != "A1" {
		t.Fatalf("search: %+v", found)
	}
	menu := f.invoke(t, ctx, "show_menu", `{}`).([]shop.Product)
	if len(menu) != 3 {
		t.Fatalf("menu: %+v", menu)
	}
}

func TestShopTools_AddCartOutcomes(t *testing.T) {
	f := newShopFixture(t)
	ctx := memory.WithConversationID(context.Background(), "line-user-1")

	added := f.invoke(t, ctx, "add_cart", `{"product_id":"A1","qty":2}`).(tools.Outcome)
	if !added.OK || added.Code != tools.CodeAdded || added.Msg != tools.MsgAdded || added.Cart.Total != 90 {
		t.Fatalf("added: %+v", added)
	}

	short := f.invoke(t, ctx, "add_cart", `{"product_id":"X1","qty":100}`).(tools.Outcome)
	if short.OK || short.Code != tools.CodeInsufficientStock || short.Msg != tools.MsgInsufficientStock {
		t.Fatalf("short: %+v", short)
	}

	missing := f.invoke(t, ctx, "add_cart", `{"product_id":"ZZ","qty":1}`).(tools.Outcome)
	if missing.OK || missing.Code != tools.CodeProductNotFound || missing.Msg != tools.MsgProductNotFound {
		t.Fatalf("missing: %+v", missing)
	}

	cart := f.invoke(t, ctx, "show_cart", `{}`).(shop.Cart)
	if cart.CustomerID != "line-user-1" || len(cart.Lines) != 1 || cart.Lines[0].Qty != 2 {
		t.Fatalf("cart after failures: %+v", cart)
	}

	other := f.invoke(t, context.Background(), "show_cart", `{}`).(shop.Cart)
	if other.CustomerID != "anonymous" || len(other.Lines) != 0 {
		t.Fatalf("anonymous cart: %+v", other)
	}
}

func TestShopTools_SendOrder(t *testing.T) {
	f := newShopFixture(t)
	ctx := memory.WithConversationID(context.Background(), "u1")

	empty := f.invoke(t, ctx, "send_order", `{"receiver_name":"王小明","address":"台北市信義路1號"}`).(tools.Outcome)
	if empty.OK || empty.Code != tools.CodeEmptyCart {
		t.Fatalf("empty cart order: %+v", empty)
	}

	f.invoke(t, ctx, "add_cart", `{"product_id":"X1","qty":5}`)
	done := f.invoke(t, ctx, "send_order", `{"receiver_name":"王小明","address":"台北市信義路1號"}`).(tools.Outcome)
	if !done.OK || done.OrderID != "000000001" || done.Msg != "OK，訂單編號是 000000001" || done.Total != 225 {
		t.Fatalf("order: %+v", done)
	}

	p, _ := f.store.Product(ctx, "X1")
	if p.Qty != 0 {
		t.Fatalf("stock after order: %d", p.Qty)
	}
	saved, err := f.orders.Get(done.OrderID)
	if err != nil || saved.ReceiverName != "王小明" || saved.CustomerID != "u1" {
		t.Fatalf("saved order: %+v %v", saved, err)
	}
}
