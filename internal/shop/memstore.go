package shop

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore keeps the catalog and carts in process behind one mutex.
type MemStore struct {
	mu       sync.RWMutex
	products []Product
	index    map[string]int
	carts    map[string][]cartItem
}

type cartItem struct {
	productID string
	qty       int
}

var _ Store = (*MemStore)(nil)

func NewMemStore(products []Product) *MemStore {
	s := &MemStore{carts: make(map[string][]cartItem)}
	s.setCatalog(products)
	return s
}

func (s *MemStore) setCatalog(products []Product) {
	s.products = make([]Product, len(products))
	copy(s.products, products)
	s.index = make(map[string]int, len(products))
	for i, p := range s.products {
		s.index[p.ID] = i
	}
}

// ReplaceCatalog swaps in a freshly loaded catalog. Carts are kept; lines for
// products that disappeared are dropped at checkout time.
func (s *MemStore) ReplaceCatalog(products []Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCatalog(products)
}

func (s *MemStore) Menu(_ context.Context, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(clampLimit(limit), len(s.products))
	out := make([]Product, n)
	copy(out, s.products[:n])
	return out, nil
}

func (s *MemStore) Search(_ context.Context, keyword string, limit int) ([]Product, error) {
	limit = clampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Product{}
	for _, p := range s.products {
		if len(out) == limit {
			break
		}
		if matches(p.Title, keyword) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) Product(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

func (s *MemStore) lookup(id string) (Product, error) {
	i, ok := s.index[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return s.products[i], nil
}

func (s *MemStore) AddToCart(_ context.Context, customerID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, fmt.Errorf("shop: qty must be positive, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(productID)
	if err != nil {
		return Cart{}, err
	}
	items := s.carts[customerID]
	held := 0
	pos := -1
	for i, it := range items {
		if it.productID == productID {
			held, pos = it.qty, i
			break
		}
	}
	// Compared as a difference so a huge qty cannot wrap around.
	if qty > p.Qty-held {
		return Cart{}, fmt.Errorf("%w: %s has %d, %d in cart, requested %d more", ErrInsufficientStock, productID, p.Qty, held, qty)
	}
	if pos >= 0 {
		items[pos].qty += qty
	} else {
		items = append(items, cartItem{productID: productID, qty: qty})
	}
	s.carts[customerID] = items
	return s.cartLocked(customerID), nil
}

func (s *MemStore) Cart(_ context.Context, customerID string) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartLocked(customerID), nil
}

func (s *MemStore) cartLocked(customerID string) Cart {
	var lines []CartLine
	for _, it := range s.carts[customerID] {
		p, err := s.lookup(it.productID)
		if err != nil {
			continue
		}
		lines = append(lines, CartLine{ProductID: p.ID, Title: p.Title, Qty: it.qty, Price: p.Price})
	}
	return newCart(customerID, lines)
}

func (s *MemStore) Checkout(_ context.Context, customerID, receiverName, address string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartLocked(customerID)
	if len(cart.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	for _, l := range cart.Lines {
		p, _ := s.lookup(l.ProductID)
		if l.Qty > p.Qty {
			return Order{}, fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, l.ProductID, p.Qty, l.Qty)
		}
	}
	for _, l := range cart.Lines {
		s.products[s.index[l.ProductID]].Qty -= l.Qty
	}
	delete(s.carts, customerID)

	return Order{
		CustomerID:   customerID,
		ReceiverName: receiverName,
		Address:      address,
		Lines:        cart.Lines,
		Total:        cart.Total,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
