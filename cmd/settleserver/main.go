package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-demov1/config"
	"trading-demov1/internal/logger"
	"trading-demov1/internal/settle/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[settleserver] starting...")

	cfg := config.Load()
	lg := logger.Init("settleserver", logger.LevelFromEnv())

	repo, err := server.NewPostgresRepo(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[settleserver] postgres: %v", err)
	}
	defer repo.Close()
	log.Println("[settleserver] postgres connected")

	mux := http.NewServeMux()
	server.New(repo, cfg.SettleToken, lg).Register(mux)

	listen := getEnv("SETTLE_LISTEN_ADDR", ":8090")
	srv := &http.Server{Addr: listen, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("[settleserver] serving on %s", listen)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[settleserver] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[settleserver] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
