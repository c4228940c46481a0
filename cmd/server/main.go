package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hersh/gotris-versus/internal/app"
	"github.com/hersh/gotris-versus/internal/server"
)

func main() {
	cfg, err := app.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Env, cfg.LogLevel, os.Stdout)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	relay := server.NewRelay(logger, server.HubOptions{
		SendBuffer:  cfg.SendBuffer,
		EventBuffer: cfg.EventBuffer,
	})
	go relay.Hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           relay.Handler(cfg.CORSAllow),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gotris relay starting", "addr", cfg.Addr(), "env", cfg.Env)
		logger.Info("websocket endpoint", "url", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
