package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"trading-demov1/config"
	"trading-demov1/internal/feed"
	"trading-demov1/internal/gateway"
	"trading-demov1/internal/logger"
	"trading-demov1/internal/metrics"
	"trading-demov1/internal/session"
	"trading-demov1/internal/settle"
	"trading-demov1/internal/store"
	"trading-demov1/internal/store/memory"
	redisstore "trading-demov1/internal/store/redis"
	"trading-demov1/internal/store/sqlite"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[demoserver] starting...")

	cfg := config.Load()
	lg := logger.Init("demoserver", logger.LevelFromEnv())
	met := metrics.New()

	st := openStore(cfg)
	defer st.Close()

	fd := feed.New(cfg.FeedBaseURL, cfg.Symbol)
	settler := chooseSettler(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *gateway.Hub
	mgr := session.New(session.Config{
		Store:   st,
		Settler: settler,
		Feed:    fd,
		Metrics: met,
		Logger:  lg,
		OnChange: func() {
			if hub != nil {
				hub.Broadcast()
			}
		},
		OnNotice: func(text string) {
			if hub != nil {
				hub.Toast(text)
			}
		},
		RefreshInterval: cfg.RefreshInterval,
		SimTickInterval: cfg.SimTickInterval,
	})
	hub = gateway.NewHub(mgr, met)

	// Remote mode: pull the authoritative money state before serving.
	if rem, ok := settler.(*settle.Remote); ok {
		syncCtx, syncCancel := context.WithTimeout(ctx, 15*time.Second)
		if err := mgr.SyncRemote(syncCtx, rem); err != nil {
			log.Printf("[demoserver] WARNING: remote state sync failed: %v", err)
		}
		syncCancel()
	}

	mgr.Run(ctx)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, processStart)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[demoserver] serving %s on %s (store=%s settle=%s)",
			cfg.Symbol, cfg.ListenAddr, cfg.StoreBackend, cfg.SettleMode)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[demoserver] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[demoserver] shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}

// openStore picks the session store backend, falling back to the
// in-memory store when the configured one cannot be opened.
func openStore(cfg *config.Config) store.Store {
	switch cfg.StoreBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			log.Printf("[demoserver] WARNING: mkdir for sqlite failed: %v, using memory store", err)
			return memory.New()
		}
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Printf("[demoserver] WARNING: sqlite open failed: %v, using memory store", err)
			return memory.New()
		}
		log.Printf("[demoserver] sqlite store at %s", cfg.SQLitePath)
		return s
	case "redis":
		s, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Printf("[demoserver] WARNING: redis connect failed: %v, using memory store", err)
			return memory.New()
		}
		log.Printf("[demoserver] redis store at %s", cfg.RedisAddr)
		return s
	case "memory":
		return memory.New()
	default:
		log.Printf("[demoserver] WARNING: unknown STORE_BACKEND %q, using memory store", cfg.StoreBackend)
		return memory.New()
	}
}

func chooseSettler(cfg *config.Config) settle.Settler {
	if cfg.SettleMode == "remote" {
		if cfg.SettleURL == "" {
			log.Println("[demoserver] WARNING: SETTLE_MODE=remote without SETTLE_URL, using local settlement")
			return settle.NewLocal()
		}
		log.Printf("[demoserver] remote settlement via %s", cfg.SettleURL)
		return settle.NewRemote(cfg.SettleURL, cfg.SettleToken, cfg.SettleUser)
	}
	return settle.NewLocal()
}
