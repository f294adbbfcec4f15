package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/server"
	"github.com/petasbytes/shop-agent/internal/shop"
)

func newServeCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Long: heredoc.Doc(`
			Serve the assistant over HTTP until interrupted.

			POST /v1/messages runs one interaction. Conversations, tool
			declarations and the catalog are readable under /v1. Set
			server.auth_token to require a bearer token.
		`),
		Example: heredoc.Doc(`
			# Serve on :8080 with the in-memory catalog
			shop-agent serve

			# Use the SQLite store and reload the catalog when the CSV changes
			SHOPAGENT_STORE_WATCH_CATALOG=true shop-agent serve --store.driver sqlite
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, o)
		},
	}
}

func runServe(cmd *cobra.Command, o *globalOptions) error {
	cfg := o.cfg
	deps, err := openShop(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	reg, err := deps.registry()
	if err != nil {
		return err
	}
	a, err := newAssistant(cmd.Context(), cfg, reg)
	if err != nil {
		return err
	}

	srv := server.New(
		server.Deps{Assistant: a, Registry: reg, Shop: deps.store, Orders: deps.orders},
		server.Options{Addr: cfg.Server.Addr, AuthToken: cfg.Server.AuthToken, Pprof: cfg.Server.Pprof},
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.Store.WatchCatalog && cfg.Store.CatalogCSV != "" {
		reloader, ok := deps.store.(shop.CatalogReloader)
		if ok {
			g.Go(func() error { return shop.WatchCatalog(ctx, cfg.Store.CatalogCSV, reloader) })
		} else {
			logger.WarnX("cli", "store %s cannot reload its catalog; not watching", cfg.Store.Driver)
		}
	}
	return g.Wait()
}
