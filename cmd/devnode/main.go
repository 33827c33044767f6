package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/config"
	"github.com/ksred/gmedchain-web/internal/devnode"
	"github.com/ksred/gmedchain-web/internal/logging"
)

// main runs a local gmedchain node exposing the REST API the frontend
// talks to, backed by sqlite instead of a ledger
func main() {
	cfg, err := config.LoadDevNode("")
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Env, cfg.Debug)

	nodeCfg := devnode.DefaultConfig()
	node, err := devnode.Open(cfg.DatabasePath, nodeCfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: devnode.NewRouter(node),
	}

	go func() {
		zlog.Info().Str("addr", srv.Addr).Str("me", nodeCfg.Me).Msg("Starting dev node")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down dev node...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Dev node forced to shutdown")
	}
}
