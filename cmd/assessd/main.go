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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/assessment-engine/internal/api/http"
	"github.com/mind-engage/assessment-engine/internal/attempts"
	"github.com/mind-engage/assessment-engine/internal/auth"
	"github.com/mind-engage/assessment-engine/internal/config"
	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/questionbank"
	"github.com/mind-engage/assessment-engine/internal/session"
	"github.com/mind-engage/assessment-engine/internal/storage"
	syncx "github.com/mind-engage/assessment-engine/internal/sync"
)

func main() {
	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver := db.Driver(cfg.DBDriver)
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	bank := questionbank.NewRepository(dbh, driver)
	events := syncx.NewEventRepo(cfg.SiteID)
	store := attempts.NewStore(dbh, events)
	takers := auth.NewDirectory(dbh)

	if counts, err := bank.Counts(ctx); err == nil {
		for _, sec := range cfg.Sections {
			if n := counts[session.Section(sec)]; n < cfg.PerSection {
				log.Printf("warning: section %s has %d questions, sessions need %d", sec, n, cfg.PerSection)
			}
		}
	}

	// --- Sessions ---
	mgr := session.NewManager(bank, store, session.ManagerConfig{
		MaxSubmitAttempts: cfg.MaxSubmitAttempts,
		PersistTimeout:    cfg.StorePersistTimeout,
		Retention:         cfg.SessionRetention,
		AbandonAfter:      cfg.SessionAbandon,
	})
	if err := mgr.StartReaper(cfg.SessionReapEvery); err != nil {
		log.Fatalf("session reaper: %v", err)
	}
	defer mgr.StopReaper()

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	var login auth.Authenticator
	if cfg.EnableLocalAuth {
		login = auth.Chain{auth.Admin{User: cfg.AdminUser, PassHash: cfg.AdminPassHash}, takers}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sections := make([]session.Section, 0, len(cfg.Sections))
	for _, s := range cfg.Sections {
		sections = append(sections, session.Section(s))
	}
	api.Mount(r, api.Deps{
		DB:       dbh,
		Auth:     authSvc,
		Login:    login,
		Takers:   takers,
		Sessions: mgr,
		Bank:     bank,
		Attempts: store,
		Blobs:    bs,
		Events:   events,
		Shape: api.Shape{
			Sections:        sections,
			PerSection:      cfg.PerSection,
			DurationSeconds: cfg.DurationSec,
		},
		AllowClaimRole: cfg.Mode == config.ModeOffline,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Printf("stopped; %d sessions still in memory", mgr.Len())
}
