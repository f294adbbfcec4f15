package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/petasbytes/shop-agent/internal/assistant"
	"github.com/petasbytes/shop-agent/internal/config"
	"github.com/petasbytes/shop-agent/internal/provider"
	"github.com/petasbytes/shop-agent/internal/runner"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

// shopDeps is the opened shop backend.
type shopDeps struct {
	store   shop.Store
	orders  *shop.OrderBook // nil when opened read-only
	closers []io.Closer
}

// openShop opens the configured store. The order book is opened only when
// withOrders is set; bolt holds an exclusive lock on it.
func openShop(ctx context.Context, cfg *config.Config, withOrders bool) (*shopDeps, error) {
	d := &shopDeps{}
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := shop.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		d.store = db
		d.closers = append(d.closers, db)
		if cfg.Store.CatalogCSV != "" {
			products, err := shop.LoadCSVFile(cfg.Store.CatalogCSV)
			if err != nil {
				_ = d.Close()
				return nil, err
			}
			if err := db.Seed(ctx, products); err != nil {
				_ = d.Close()
				return nil, fmt.Errorf("seed catalog: %w", err)
			}
		}
	default:
		products, err := shop.LoadCSVFile(cfg.Store.CatalogCSV)
		if err != nil {
			return nil, err
		}
		d.store = shop.NewMemStore(products)
	}

	if withOrders {
		orders, err := shop.OpenOrderBook(cfg.Store.OrdersPath)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.orders = orders
		d.closers = append(d.closers, orders)
	}
	return d, nil
}

func (d *shopDeps) registry() (*tools.Registry, error) {
	var sink shop.OrderSink
	if d.orders != nil {
		sink = d.orders
	}
	return tools.NewShopRegistry(d.store, sink)
}

func (d *shopDeps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newAssistant builds the completion backend, runner and conversation store
// around reg.
func newAssistant(ctx context.Context, cfg *config.Config, reg *tools.Registry) (*assistant.Assistant, error) {
	client, err := provider.New(ctx, cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}
	r := runner.New(client, reg, runner.WithMaxIterations(cfg.Agent.MaxIterations))
	store := memory.NewStore(memory.SystemMessage(cfg.Agent.SystemPrompt))
	return assistant.New(store, r,
		assistant.WithApology(cfg.Agent.Apology),
		assistant.WithHistoryBudget(cfg.Agent.HistoryBudget),
	), nil
}
