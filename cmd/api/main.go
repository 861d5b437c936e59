package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/cache"
	"shopcore.dev/internal/catalog"
	"shopcore.dev/internal/config"
	"shopcore.dev/internal/events"
	"shopcore.dev/internal/httpapi"
	"shopcore.dev/internal/obs"
)

var version = "0.3.0"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	if db == nil {
		log.Fatal("missing database DSN: set SHOPCORE_PG_DSN")
	}

	bus := events.NewBus()
	store := cache.New(cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	if err := cache.Register(bus, store); err != nil {
		log.Fatalf("register cache subscriber: %v", err)
	}

	authSvc, err := auth.NewService(auth.NewPGStore(db), auth.WithSessionTTL(cfg.Session.TTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	catalogSvc := catalog.NewService(catalog.NewPGStore(db), bus, store)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := authSvc.EnsurePermissions(seedCtx, auth.BuiltinPermissions()); err != nil {
		log.Fatalf("seed permission catalog: %v", err)
	}
	cancelSeed()

	api := httpapi.New(httpapi.Options{
		Version:      version,
		ReadyProbe:   httpapi.ReadyProbe{DB: db},
		Auth:         authSvc,
		Catalog:      catalogSvc,
		Bus:          bus,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Production(),
	})

	var handler http.Handler = api.Handler()
	handler = httpapi.RateLimit(handler, cfg.HTTP.RateBurst, cfg.HTTP.RatePerSecond)
	handler = httpapi.MaxBodyBytes(handler, cfg.HTTP.MaxBodyBytes)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)
	handler = httpapi.RequestID(handler)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	log.Printf("Starting shopcore-api %s on %s", version, srv.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = db.Close()
	log.Println("Stopped")
}
