package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/pcbuild-assess/internal/api/http"
	"github.com/mind-engage/pcbuild-assess/internal/app"
	auth "github.com/mind-engage/pcbuild-assess/internal/auth/middleware"
	"github.com/mind-engage/pcbuild-assess/internal/config"
	"github.com/mind-engage/pcbuild-assess/internal/logger"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	// --- Store ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	engine, err := app.Open(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("store open failed", "error", err)
	}
	defer engine.Close()

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

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

	// Dev token minting (offline by default; refused online by Validate)
	if cfg.EnableDevTokens {
		r.Post("/auth/dev-token", auth.DevTokenHandler(authSvc))
		log.Warn("dev token endpoint enabled")
	}

	// Protected API (JWT → subject and role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.MountAssessments(pr, engine.Controller, engine.Results)
	})

	r.Get("/healthz", api.HealthHandler())
	r.Get("/readyz", api.ReadyHandler(engine.Ping))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("stopped")
}
