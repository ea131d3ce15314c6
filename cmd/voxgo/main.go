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

	"github.com/voxgo-dev/voxgo/internal/scheduler"
	"github.com/voxgo-dev/voxgo/internal/server"
	"github.com/voxgo-dev/voxgo/pkg/chat"
	"github.com/voxgo-dev/voxgo/pkg/config"
	"github.com/voxgo-dev/voxgo/pkg/llm/provider"
	"github.com/voxgo-dev/voxgo/pkg/observability"
	"github.com/voxgo-dev/voxgo/pkg/session"
	"github.com/voxgo-dev/voxgo/pkg/store"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	// Command line flags
	configFile = flag.String("config", getEnv("CONFIG_FILE", ""), "Configuration file")
	httpPort   = flag.Int("http-port", 0, "HTTP server port (overrides config)")
)

func main() {
	flag.Parse()

	log.Printf("Starting voxgo v%s", Version)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *httpPort != 0 {
		cfg.Server.Port = *httpPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize observability
	observability.InitMetrics()
	if err := observability.InitTracingFromEnv(); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Durable message store
	history, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize message store: %v", err)
	}
	if history != nil {
		defer func() {
			if err := history.Close(); err != nil {
				log.Printf("Message store close error: %v", err)
			}
		}()
	}

	// LLM provider
	prov, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize provider %q: %v", cfg.Provider.Name, err)
	}
	log.Printf("Using provider: %s", prov.Name())

	// Chat service over the live session context
	sessions := session.NewContextStore(session.Config{
		SystemPrompt: cfg.Session.SystemPrompt,
		MaxTurns:     cfg.Session.MaxTurns,
	})

	opts := chat.Options{
		History:        history,
		HistoryBackend: cfg.Store.Backend,
		Model:          cfg.Provider.Model,
		Temperature:    cfg.Provider.Temperature,
		MaxTokens:      cfg.Provider.MaxTokens,
	}
	if cfg.RateLimit.Enabled {
		opts.Limiter = chat.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	chatSvc := chat.New(sessions, prov, opts)

	// Background expiry sweep
	sweeper := scheduler.New(chatSvc, cfg.Session.MaxAge.Std(), cfg.Session.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sweeper.Stop()

	srv := server.New(server.Config{
		Port:          cfg.Server.Port,
		SessionMaxAge: cfg.Session.MaxAge.Std(),
	}, chatSvc, history)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Printf("Received %s, shutting down...", sig)
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := observability.ShutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	log.Println("Voice assistant stopped")
}

func buildStore(cfg *config.Config) (store.MessageStore, error) {
	switch cfg.Store.Backend {
	case "none":
		log.Println("History persistence disabled")
		return nil, nil
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
			TTL:      cfg.Store.Redis.TTL.Std(),
		})
	case "firestore":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return store.NewFirestoreStore(ctx, store.FirestoreConfig{
			ProjectID:       cfg.Store.Firestore.ProjectID,
			CredentialsFile: cfg.Store.Firestore.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	provConfig := map[string]any{}
	switch cfg.Provider.Name {
	case "openai":
		provConfig["api_key"] = cfg.Provider.OpenAIKey
		if cfg.Provider.BaseURL != "" {
			provConfig["base_url"] = cfg.Provider.BaseURL
		}
	case "gemini":
		provConfig["api_key"] = cfg.Provider.GeminiKey
	}

	prov, err := provider.New(cfg.Provider.Name, provConfig)
	if err != nil {
		return nil, err
	}
	return provider.NewInstrumentedProvider(prov), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
