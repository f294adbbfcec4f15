package shop_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/petasbytes/shop-agent/internal/shop"
)

func TestOrderBook_PlaceAssignsSequentialIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders", "orders.db")
	book, err := shop.OpenOrderBook(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	first, err := book.Place(context.Background(), shop.Order{CustomerID: "u1", ReceiverName: "王小明", Total: 90})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	second, err := book.Place(context.Background(), shop.Order{CustomerID: "u2", Total: 40})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if first.ID != "000000001" || second.ID != "000000002" {
		t.Fatalf("unexpected ids: %q %q", first.ID, second.ID)
	}

	got, err := book.Get(first.ID)
	if err != nil || got.ReceiverName != "王小明" || got.Total != 90 {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := book.Get("999"); !errors.Is(err, shop.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}

	mine, err := book.List("u1")
	if err != nil || len(mine) != 1 {
		t.Fatalf("list u1: %v %v", mine, err)
	}
	all, _ := book.List("")
	if len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("list all: %+v", all)
	}

	// Sequence survives reopening.
	if err := book.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	book, err = shop.OpenOrderBook(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer book.Close()
	third, err := book.Place(context.Background(), shop.Order{CustomerID: "u1"})
	if err != nil || third.ID != "000000003" {
		t.Fatalf("after reopen: %q %v", third.ID, err)
	}
}
