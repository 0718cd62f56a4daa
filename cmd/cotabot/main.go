package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cotafacil/cotabot/internal/catalog"
	"github.com/cotafacil/cotabot/internal/config"
	"github.com/cotafacil/cotabot/internal/gateway"
	"github.com/cotafacil/cotabot/internal/hours"
	"github.com/cotafacil/cotabot/internal/httpapi"
	"github.com/cotafacil/cotabot/internal/nlu"
	"github.com/cotafacil/cotabot/internal/observability"
	"github.com/cotafacil/cotabot/internal/orchestrator"
	"github.com/cotafacil/cotabot/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv load: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer store.Close()

	if mem, ok := store.(*session.MemoryStore); ok {
		mem.SetExpireHook(func(*session.Session) {
			metrics.SessionEvents.WithLabelValues("expired").Inc()
		})
		log.Printf("session store: in-memory")
	} else {
		log.Printf("session store: postgres")
	}

	adapter, err := nlu.NewAdapter(nlu.Config{
		Mode:         cfg.NLUMode,
		APIKey:       cfg.OpenAIKey,
		BaseURL:      cfg.OpenAIURL,
		Model:        cfg.OpenAIModel,
		HistoryLimit: cfg.HistoryContextLimit,
	})
	if err != nil {
		log.Fatalf("nlu adapter init failed: %v", err)
	}

	gw, err := gateway.NewClient(gateway.Config{
		Mode:        cfg.GatewayMode,
		BaseURL:     cfg.ZAPIBaseURL,
		InstanceID:  cfg.ZAPIInstanceID,
		Token:       cfg.ZAPIToken,
		AdminNumber: cfg.AdminNumber,
	})
	if err != nil {
		log.Fatalf("gateway init failed: %v", err)
	}

	hrs := hours.NewChecker(cfg.BusinessHoursEnabled, cfg.BusinessHoursTimezone)
	hub := orchestrator.NewHub()

	orch, err := orchestrator.New(
		store,
		catalog.NewStore(cfg.DataDir),
		adapter,
		gw,
		hrs,
		hub,
		metrics,
		cfg.HistoryContextLimit,
	)
	if err != nil {
		log.Fatalf("orchestrator init failed: %v", err)
	}

	api := httpapi.New(cfg, store, orch, hub, hrs, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	if mem, ok := store.(*session.MemoryStore); ok {
		mem.StartJanitor(runCtx, cfg.SweepInterval, cfg.SessionTTL)
	} else {
		go sweepLoop(runCtx, store, metrics, cfg.SweepInterval, cfg.SessionTTL)
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func sweepLoop(ctx context.Context, store session.Store, metrics *observability.Metrics, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.SweepExpired(ctx, ttl)
			if err != nil {
				log.Printf("session sweep: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("session sweep removed %d expired sessions", removed)
			}
			if active, err := store.Active(ctx); err == nil {
				metrics.ActiveSessions.Set(float64(len(active)))
			}
		}
	}
}
