package shop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
)

var bucketOrders = []byte("orders")

// OrderBook persists submitted orders in a BoltDB file. IDs are
// nine-digit, zero-padded bucket sequence numbers.
type OrderBook struct {
	db *bolt.DB
}

var (
	_ OrderSink   = (*OrderBook)(nil)
	_ OrderReader = (*OrderBook)(nil)
)

func OpenOrderBook(path string) (*OrderBook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open order book: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketOrders)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %q: %w", bucketOrders, err)
	}
	return &OrderBook{db: db}, nil
}

func (b *OrderBook) Close() error { return b.db.Close() }

// Place assigns the next order ID and stores the order.
func (b *OrderBook) Place(_ context.Context, order Order) (Order, error) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketOrders)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		order.ID = fmt.Sprintf("%09d", seq)
		data, err := jsonutil.Marshal(order)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(order.ID), data)
	})
	if err != nil {
		return Order{}, fmt.Errorf("place order: %w", err)
	}
	return order, nil
}

func (b *OrderBook) Get(id string) (Order, error) {
	var order Order
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketOrders).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return jsonutil.Unmarshal(data, &order)
	})
	return order, err
}

// List returns a customer's orders, oldest first. An empty customerID lists all.
func (b *OrderBook) List(customerID string) ([]Order, error) {
	out := []Order{}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOrders).ForEach(func(_, v []byte) error {
			var o Order
			if err := jsonutil.Unmarshal(v, &o); err != nil {
				return err
			}
			if customerID == "" || o.CustomerID == customerID {
				out = append(out, o)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
