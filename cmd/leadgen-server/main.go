package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"leadgen-pipeline/internal/api/routes"
	"leadgen-pipeline/internal/broadcast"
	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/fetchengine"
	"leadgen-pipeline/internal/leadgen"
	"leadgen-pipeline/internal/leadgen/captcha"
	"leadgen-pipeline/internal/leadsink"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/sessionstore"
)

// sectorProviderAdapter adapts config.SectorStore, which cannot import
// leadgen without an import cycle, to leadgen.SectorProvider.
type sectorProviderAdapter struct {
	store *config.SectorStore
}

func (a sectorProviderAdapter) Sectors(useCase string) []leadgen.Sector {
	entries := a.store.Sectors(useCase)
	out := make([]leadgen.Sector, len(entries))
	for i, e := range entries {
		out[i] = leadgen.Sector{Key: e.Key, Label: e.Label, Queries: e.Queries}
	}
	return out
}

func main() {
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("starting leadgen pipeline service")

	sectorStore, err := config.NewSectorStore(cfg.Sectors.ConfigPath, cfg.Sectors.HotReload, logger)
	if err != nil {
		logger.Fatal("failed to load sectors config", map[string]interface{}{"error": err.Error()})
	}
	defer sectorStore.Close()

	registry := leadgen.NewAnalyzerRegistry(sectorProviderAdapter{store: sectorStore})

	var sessions leadgen.SessionStore
	switch cfg.SessionStore.Backend {
	case "redis":
		redisStore, err := sessionstore.NewRedisStore(cfg)
		if err != nil {
			logger.Fatal("failed to connect session store to redis", map[string]interface{}{"error": err.Error()})
		}
		defer redisStore.Close()
		sessions = redisStore
	default:
		sessions = sessionstore.NewMemoryStore()
	}

	sink := leadsink.NewMemoryLeadSink()
	cache := leadgen.NewCache()

	var solver captcha.Solver
	if s := captcha.NewTwoCaptchaSolver(cfg); s != nil {
		solver = s
	}

	pages, err := leadgen.NewPagePool(cfg)
	if err != nil {
		logger.Warn("browser pool unavailable, falling back to HTTP-only search", map[string]interface{}{"error": err.Error()})
		pages = nil
	}

	search := leadgen.NewSearchAdapter(cfg, pages, solver)

	fetchChain := fetchengine.NewChain(cfg, cfg.Scraper.FetchEngine)
	fetcher := leadgen.NewSiteFetcher(fetchChain)

	emailVal := leadgen.NewEmailValidator(cfg.Email.MXLookupTimeout, cfg.Email.SMTPProbeTimeout, cache)

	manager := leadgen.NewJobManager(registry, sessions, sink, search, fetcher, emailVal)
	hub := broadcast.NewHub()

	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, manager, hub)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down leadgen pipeline service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		manager.StopAll()

		if pages != nil {
			pages.Close()
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.Info("listening", map[string]interface{}{"address": srv.Addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", map[string]interface{}{"error": err.Error()})
	}
}
