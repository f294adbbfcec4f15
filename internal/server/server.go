// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/petasbytes/shop-agent/internal/assistant"
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/shop"
	"github.com/petasbytes/shop-agent/tools"
)

type Options struct {
	Addr      string
	AuthToken string
	Pprof     bool
}

type Deps struct {
	Assistant *assistant.Assistant
	Registry  *tools.Registry
	Shop      shop.Store
	// Orders enables the /v1/orders routes when set.
	Orders shop.OrderReader
}

// NewRouter builds the gin engine with every route installed.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery(), RequestLogger(), BearerAuth(opts.AuthToken))

	h := &handlers{assistant: deps.Assistant, registry: deps.Registry, shop: deps.Shop, orders: deps.Orders}
	g.GET("/healthz", healthz)

	apiV1 := g.Group("/v1")
	{
		apiV1.POST("/messages", h.postMessage)

		apiV1.GET("/conversations", h.listConversations)
		apiV1.GET("/conversations/:id", h.getConversation)
		apiV1.DELETE("/conversations/:id", h.deleteConversation)

		apiV1.GET("/tools", h.listTools)
		apiV1.GET("/products", h.listProducts)

		if deps.Orders != nil {
			apiV1.GET("/orders", h.listOrders)
			apiV1.GET("/orders/:id", h.getOrder)
		}
	}

	if opts.Pprof {
		pprof.Register(g)
	}
	return g
}

type Server struct {
	srv *http.Server
}

func New(deps Deps, opts Options) *Server {
	return &Server{srv: &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(deps, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoX("server", "listening on %s", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.InfoX("server", "stopped")
	return nil
}
