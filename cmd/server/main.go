package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/gmedchain-web/internal/config"
	"github.com/ksred/gmedchain-web/internal/database"
	"github.com/ksred/gmedchain-web/internal/gmedchain"
	"github.com/ksred/gmedchain-web/internal/logging"
	"github.com/ksred/gmedchain-web/internal/results"
	"github.com/ksred/gmedchain-web/internal/session"
	"github.com/ksred/gmedchain-web/internal/web"
)

// main runs the gmedchain web frontend with graceful shutdown support
func main() {
	cfg, err := config.Load("")
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Env, cfg.Debug)
	if cfg.GeneratedSecret {
		zlog.Warn().Msg("DIALOG_SECRET not set, using a random secret; open dialogs will not survive a restart")
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath, &results.Record{})
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	resultStore := results.NewStore(db)

	// Start the result sweeper
	sweeper := results.NewSweeper(resultStore, cfg.ResultRetention)
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	go sweeper.Start(sweeperCtx)

	// A zero NodeTimeout leaves requests unbounded
	node := gmedchain.NewClient(gmedchain.Config{
		BaseURL:    cfg.NodeAPIURL,
		HTTPClient: &http.Client{Timeout: cfg.NodeTimeout},
	})

	server, err := web.NewServer(web.Config{
		Node:           node,
		Results:        resultStore,
		Sessions:       session.NewService(cfg.DialogSecret, cfg.DialogTTL),
		StrictForm:     cfg.StrictFormValidation,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize web server")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Handler(),
	}

	// Graceful shutdown setup
	go func() {
		zlog.Info().Str("addr", srv.Addr).Str("node", cfg.NodeAPIURL).Msg("Starting web frontend")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}
