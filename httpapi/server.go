// Package httpapi exposes the settlement engines over HTTP: vault
// address derivation, vault deposits, collection mints and faucet batch
// mints, plus health and prometheus metrics endpoints.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/collection"
	"github.com/aqmint/aqmint-go/faucet"
	"github.com/aqmint/aqmint-go/vault"
)

// Server wires the engines behind a gin router. Operator is the identity
// guarded operations (faucet batch mints) run as.
type Server struct {
	State      *chain.State
	Collection *collection.Collection
	Vault      *vault.Engine
	Faucet     *faucet.Distributor
	Route      collection.Route
	Operator   common.Address

	Logger  *slog.Logger
	Metrics *Metrics
}

// Handler builds the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.Logger))

	router.GET("/healthz", s.healthHandler)
	if s.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	v1.GET("/vaults/address", s.vaultAddressHandler)
	v1.POST("/vaults/deposits", s.depositHandler)
	v1.POST("/mints/native", s.mintNativeHandler)
	v1.POST("/mints/erc20", s.mintERC20Handler)
	v1.POST("/faucet/batch-mints", s.faucetBatchMintHandler)
	v1.GET("/tokens/:id", s.tokenHandler)

	return router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "chain_id": s.State.ChainID().String()})
}

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownTimeout = 10 * time.Second

// ListenAndServe runs the server until the listener fails or ctx is
// cancelled, then drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	s.Logger.Info("http server listening", slog.String("addr", addr))

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		s.Logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
