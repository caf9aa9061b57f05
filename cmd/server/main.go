package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/webmumble/internal/adapters/http"
	"github.com/dkeye/webmumble/internal/adapters/mumble"
	wssignal "github.com/dkeye/webmumble/internal/adapters/signal"
	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	reg := app.NewRegistry()
	dial := mumble.Dialer(mumble.Options{
		InsecureTLS: cfg.InsecureTLS,
		DialTimeout: cfg.DialTimeout,
	})
	ctl := wssignal.NewBridgeWSController(reg, dial, cfg)

	r := router.SetupRouter(ctx, cfg, reg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("WebMumble bridge started")
		log.Info().Str("endpoint", fmt.Sprintf("ws://localhost:%d/ws", cfg.Port)).Msg("WebSocket endpoint")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
