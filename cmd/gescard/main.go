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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/auth"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/carte"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/journal"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/ratelimit"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/config"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/database"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/metrics"
	sharedmiddleware "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/middleware"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/sitesync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Decision journal backend
	var recorder journal.Recorder
	journalRepo := journal.NewRepository(db.Pool)
	switch cfg.Journal.Backend {
	case "kurrentdb":
		client, err := journal.NewKurrentDBClient(cfg.Journal.KurrentDB)
		if err != nil {
			log.Fatalf("failed to create kurrentdb client: %v", err)
		}
		defer client.Close()
		recorder = journal.NewKurrentDBRepository(client)
	default:
		recorder = journalRepo
	}
	if err := recorder.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize journal: %v", err)
	}
	notifier := journal.NewNotifier(recorder)

	// Authentication
	sweepPolicy := auth.ParseSweepPolicy(cfg.Auth.RevocationPolicy)
	revoked := auth.NewRevocationStore(sweepPolicy, cfg.Auth.RevocationSweep)
	defer revoked.Close()

	authenticator := auth.NewAuthenticator(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL,
		revoked,
		auth.WithRefreshThreshold(cfg.Auth.RefreshThreshold),
		auth.WithAPIToken(cfg.SiteSync.APIToken),
	)

	// Authorization
	carteRepo := carte.NewRepository(db.Pool)
	evaluator := auth.NewEvaluator(carteRepo)
	pipeline := auth.NewPipeline(authenticator, evaluator, notifier)

	// Rate limiting
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.SweepInterval)
	defer limiter.Close()
	ipLimiter := sharedmiddleware.NewIPRateLimiter(cfg.RateLimit.PreAuthRPS, cfg.RateLimit.PreAuthBurst)

	// Site database polling
	if cfg.SiteSync.Enabled {
		adapter, err := sitesync.NewAdapter(ctx, cfg.SiteSync)
		if err != nil {
			log.Fatalf("failed to connect to site database: %v", err)
		}
		adapter.Start(ctx)
		defer adapter.Stop()
		go func() {
			for change := range adapter.Changes() {
				log.Printf("sitesync: card %s updated (coordination %s)", change.SiteCardID, change.Coordination)
			}
		}()
	}

	router := buildRouter(cfg, db, pipeline, limiter, ipLimiter, journalRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("gescard authorization service listening on :%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}

func buildRouter(
	cfg *config.Config,
	db *database.DB,
	pipeline *auth.Pipeline,
	limiter *ratelimit.Limiter,
	ipLimiter *sharedmiddleware.IPRateLimiter,
	journalRepo *journal.Repository,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(sharedmiddleware.SecurityHeaders)
	r.Use(sharedmiddleware.MaxBodyBytes(10 << 20))
	r.Use(metrics.Middleware)
	r.Use(ipLimiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Health(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(pipeline.Middleware)
		api.Use(ratelimit.Middleware(limiter))

		api.Post("/auth/logout", pipeline.LogoutHandler())

		api.Route("/statistiques", func(stats chi.Router) {
			stats.Use(pipeline.RequirePage(auth.PageStatistiques))
			stats.Get("/scope", pipeline.StatisticsScopeHandler())
		})

		api.Route("/journal", func(jr chi.Router) {
			jr.Use(pipeline.RequireJournalAccess)
			jr.Mount("/", journal.NewHandler(journalRepo).Routes())
		})
	})

	return r
}
