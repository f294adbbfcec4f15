package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver

	"github.com/petasbytes/shop-agent/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	qty      INTEGER NOT NULL CHECK (qty >= 0),
	price    INTEGER NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cart_lines (
	customer_id TEXT NOT NULL,
	product_id  TEXT NOT NULL,
	qty         INTEGER NOT NULL,
	added_at    INTEGER NOT NULL,
	PRIMARY KEY (customer_id, product_id)
);`

// SQLiteStore keeps catalog and carts in a SQLite file so stock survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serialises writers; stock checks rely on it.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Seed makes the catalog exactly products, in their order: listed products
// are upserted with their stock overwritten and the rest are deleted. Cart
// lines for deleted products stay but are hidden until the product returns.
func (s *SQLiteStore) Seed(ctx context.Context, products []Product) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (id, title, qty, price, position) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title, qty = excluded.qty,
				price = excluded.price, position = excluded.position`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		args := make([]any, 0, len(products))
		for i, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Title, p.Qty, p.Price, i); err != nil {
				return fmt.Errorf("seed %s: %w", p.ID, err)
			}
			args = append(args, p.ID)
		}
		query := `DELETE FROM products`
		if len(args) > 0 {
			query += ` WHERE id NOT IN (?` + strings.Repeat(", ?", len(args)-1) + `)`
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("drop removed products: %w", err)
		}
		return nil
	})
}

// ReplaceCatalog lets the catalog watcher drive a SQLite store too.
func (s *SQLiteStore) ReplaceCatalog(products []Product) {
	if err := s.Seed(context.Background(), products); err != nil {
		logger.WarnX("shop", "[SQLiteStore] reseed failed: %v", err)
	}
}

func (s *SQLiteStore) Menu(ctx context.Context, limit int) ([]Product, error) {
	return s.queryProducts(ctx, `SELECT id, title, qty, price FROM products ORDER BY position LIMIT ?`, clampLimit(limit))
}

func (s *SQLiteStore) Search(ctx context.Context, keyword string, limit int) ([]Product, error) {
	return s.queryProducts(ctx, `
		SELECT id, title, qty, price FROM products
		WHERE instr(lower(title), lower(trim(?))) > 0
		ORDER BY position LIMIT ?`, keyword, clampLimit(limit))
}

func (s *SQLiteStore) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Qty, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Product(ctx context.Context, id string) (Product, error) {
	return productRow(s.db.QueryRowContext(ctx, `SELECT id, title, qty, price FROM products WHERE id = ?`, id), id)
}

func productRow(row *sql.Row, id string) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Title, &p.Qty, &p.Price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return Product{}, err
	}
	return p, nil
}

func (s *SQLiteStore) AddToCart(ctx context.Context, customerID, productID string, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, fmt.Errorf("shop: qty must be positive, got %d", qty)
	}
	var cart Cart
	err := s.tx(ctx, func(tx *sql.Tx) error {
		p, err := productRow(tx.QueryRowContext(ctx, `SELECT id, title, qty, price FROM products WHERE id = ?`, productID), productID)
		if err != nil {
			return err
		}
		var held int
		err = tx.QueryRowContext(ctx, `SELECT qty FROM cart_lines WHERE customer_id = ? AND product_id = ?`, customerID, productID).Scan(&held)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if qty > p.Qty-held {
			return fmt.Errorf("%w: %s has %d, %d in cart, requested %d more", ErrInsufficientStock, productID, p.Qty, held, qty)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_lines (customer_id, product_id, qty, added_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(customer_id, product_id) DO UPDATE SET qty = qty + excluded.qty`,
			customerID, productID, qty, time.Now().UnixNano()); err != nil {
			return err
		}
		cart, err = cartTx(ctx, tx, customerID)
		return err
	})
	return cart, err
}

func (s *SQLiteStore) Cart(ctx context.Context, customerID string) (Cart, error) {
	var cart Cart
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var err error
		cart, err = cartTx(ctx, tx, customerID)
		return err
	})
	return cart, err
}

func cartTx(ctx context.Context, tx *sql.Tx, customerID string) (Cart, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT p.id, p.title, c.qty, p.price FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.customer_id = ? ORDER BY c.added_at`, customerID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ProductID, &l.Title, &l.Qty, &l.Price); err != nil {
			return Cart{}, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return Cart{}, err
	}
	return newCart(customerID, lines), nil
}

func (s *SQLiteStore) Checkout(ctx context.Context, customerID, receiverName, address string) (Order, error) {
	var order Order
	err := s.tx(ctx, func(tx *sql.Tx) error {
		cart, err := cartTx(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}
		for _, l := range cart.Lines {
			res, err := tx.ExecContext(ctx, `UPDATE products SET qty = qty - ? WHERE id = ? AND qty >= ?`, l.Qty, l.ProductID, l.Qty)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s requested %d", ErrInsufficientStock, l.ProductID, l.Qty)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE customer_id = ?`, customerID); err != nil {
			return err
		}
		order = Order{
			CustomerID:   customerID,
			ReceiverName: receiverName,
			Address:      address,
			Lines:        cart.Lines,
			Total:        cart.Total,
			CreatedAt:    time.Now().UTC(),
		}
		return nil
	})
	return order, err
}

func (s *SQLiteStore) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
