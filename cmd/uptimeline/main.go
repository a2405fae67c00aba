package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"uptimeline/internal/config"
	"uptimeline/internal/eventsource"
	"uptimeline/internal/models"
	"uptimeline/internal/scheduler"
	"uptimeline/internal/server"
	"uptimeline/internal/state"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file (YAML)")
		addr       = flag.String("addr", "", "address for the web server (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	log.Printf("Loaded %d device(s) from %s", len(cfg.Devices), *configPath)

	defaultRange, err := models.ParseRange(cfg.DefaultRange)
	if err != nil {
		log.Fatalf("default range: %v", err)
	}

	source := eventsource.NewClient(
		cfg.EventSource.BaseURL,
		cfg.EventSource.Token,
		time.Duration(cfg.EventSource.TimeoutSeconds)*time.Second,
	)
	store := state.NewStore()

	sched := scheduler.New(
		time.Duration(cfg.RefreshSeconds)*time.Second,
		defaultRange,
		cfg.Devices,
		source,
		store,
	)
	sched.Start()
	defer sched.Stop()

	srv := server.New(cfg.ListenAddr, sched, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("uptimeline listening on %s (refresh %ds, range %s)", cfg.ListenAddr, cfg.RefreshSeconds, defaultRange)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
