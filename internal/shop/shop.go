// Package shop is the breakfast-shop backend the assistant's tools act on:
// the product catalog, per-customer carts and submitted orders.
package shop

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProductNotFound   = errors.New("shop: product not found")
	ErrInsufficientStock = errors.New("shop: insufficient stock")
	ErrEmptyCart         = errors.New("shop: cart is empty")
	ErrOrderNotFound     = errors.New("shop: order not found")
)

// DefaultLimit caps menu and search listings.
const DefaultLimit = 5

type Product struct {
	ID    string `json:"product_id"`
	Title string `json:"title"`
	Qty   int    `json:"qty"`
	Price int    `json:"price"`
}

// Available reports whether the product can currently be bought.
func (p Product) Available() bool { return p.Qty > 0 }

type CartLine struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
	Price     int    `json:"price"`
	Subtotal  int    `json:"subtotal"`
}

type Cart struct {
	CustomerID string     `json:"customer_id"`
	Lines      []CartLine `json:"lines"`
	Total      int        `json:"total"`
}

func newCart(customerID string, lines []CartLine) Cart {
	c := Cart{CustomerID: customerID, Lines: lines}
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
	for i := range c.Lines {
		c.Lines[i].Subtotal = c.Lines[i].Qty * c.Lines[i].Price
		c.Total += c.Lines[i].Subtotal
	}
	return c
}

type Order struct {
	ID           string     `json:"order_id"`
	CustomerID   string     `json:"customer_id"`
	ReceiverName string     `json:"receiver_name"`
	Address      string     `json:"address"`
	Lines        []CartLine `json:"lines"`
	Total        int        `json:"total"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Store is the catalog and cart backend. Implementations enforce stock
// consistency inside their own mutation path.
type Store interface {
	// Menu lists the first limit products in catalog order.
	Menu(ctx context.Context, limit int) ([]Product, error)
	// Search lists up to limit products whose title contains keyword, ignoring case.
	Search(ctx context.Context, keyword string, limit int) ([]Product, error)
	Product(ctx context.Context, id string) (Product, error)
	// AddToCart adds qty of a product to the customer's cart. The total
	// quantity in the cart may not exceed stock.
	AddToCart(ctx context.Context, customerID, productID string, qty int) (Cart, error)
	Cart(ctx context.Context, customerID string) (Cart, error)
	// Checkout turns the cart into an order draft, decrements stock and
	// empties the cart. The draft has no ID yet.
	Checkout(ctx context.Context, customerID, receiverName, address string) (Order, error)
}

// OrderSink records checked-out orders and assigns their IDs.
type OrderSink interface {
	Place(ctx context.Context, order Order) (Order, error)
}

// OrderReader looks up placed orders. Get fails with ErrOrderNotFound.
type OrderReader interface {
	Get(id string) (Order, error)
	List(customerID string) ([]Order, error)
}
