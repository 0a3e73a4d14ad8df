// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/skirmish/internal/archive"
	"github.com/jason-s-yu/skirmish/internal/auth"
	"github.com/jason-s-yu/skirmish/internal/cache"
	"github.com/jason-s-yu/skirmish/internal/handlers"
	"github.com/jason-s-yu/skirmish/internal/middleware"
	"github.com/jason-s-yu/skirmish/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	ctx := context.Background()
	var opts []session.Option

	// Match archiving and the historian feed are optional collaborators; the
	// engine runs fully in memory without them.
	if os.Getenv("PG_HOST") != "" {
		store, err := archive.Connect(ctx, logger)
		if err != nil {
			logger.Warnf("match archive disabled: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, session.WithArchive(store))
			logger.Info("match archive enabled")
		}
	}
	if os.Getenv("REDIS_ADDR") != "" {
		feed, err := cache.ConnectFeed(ctx, logger)
		if err != nil {
			logger.Warnf("action feed disabled: %v", err)
		} else {
			defer feed.Close()
			opts = append(opts, session.WithFeed(feed))
			logger.Info("action feed enabled")
		}
	}
	if v := os.Getenv("ROOM_GRACE_PERIOD"); v != "" {
		grace, err := time.ParseDuration(v)
		if err != nil {
			logger.Fatalf("invalid ROOM_GRACE_PERIOD %q: %v", v, err)
		}
		opts = append(opts, session.WithGracePeriod(grace))
	}

	dispatcher := session.New(logger, opts...)
	dispatcher.StartJanitor()

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, dispatcher),
	)))
	mux.Handle("/rooms", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListRoomsHandler(dispatcher),
	)))
	mux.Handle("/health", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.HealthHandler,
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
		dispatcher.Shutdown(drainCtx)
	}()

	logger.Infof("Running on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	<-shutdownDone
}
