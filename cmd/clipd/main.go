// Command clipd runs the clipboard sharing server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudclip-dev/cloudclip/internal/server"
	"github.com/cloudclip-dev/cloudclip/pkg/config"
	"github.com/cloudclip-dev/cloudclip/pkg/observability"
	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	configFile = flag.String("config", getEnv("CLIPD_CONFIG", "config/clipd.yaml"), "Server configuration file")
	listenAddr = flag.String("listen", "", "Listen address, overrides config")
)

func main() {
	flag.Parse()

	log.Printf("Starting Cloud Clipboard server v%s", Version)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Build store: %v", err)
	}
	defer func() { _ = store.Close() }()

	observability.InitMetrics()
	health := observability.NewHealthChecker()
	if rs, ok := store.(*session.RedisStore); ok {
		health.RegisterCheck(observability.StoreCheck(rs.Ping))
	}

	srv := server.New(cfg, store, health)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Listening on %s (store: %s)", cfg.ListenAddr, cfg.Store)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func buildStore(cfg *config.Config) (session.Store, error) {
	storeCfg := session.Config{
		TTL:      cfg.Session.TTL,
		MaxItems: cfg.Session.MaxItems,
	}

	switch cfg.Store {
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			PoolSize: cfg.Redis.PoolSize,
			Store:    storeCfg,
		})
	default:
		return session.NewMemoryStore(storeCfg), nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
