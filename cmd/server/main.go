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

	"github.com/gorilla/mux"
	"github.com/pucet-prep/backend/internal/auth"
	"github.com/pucet-prep/backend/internal/config"
	"github.com/pucet-prep/backend/internal/content"
	"github.com/pucet-prep/backend/internal/database"
	"github.com/pucet-prep/backend/internal/exam"
	"github.com/pucet-prep/backend/internal/explain"
	"github.com/pucet-prep/backend/internal/logger"
	"github.com/pucet-prep/backend/internal/metrics"
	"github.com/pucet-prep/backend/internal/middleware"
	"github.com/pucet-prep/backend/internal/results"
	"github.com/pucet-prep/backend/internal/token"
	"github.com/pucet-prep/backend/internal/tracing"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(cfg)
	defer zlog.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zlog.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		zlog.Fatal("run migrations", zap.Error(err))
	}

	catalog, err := exam.NewCatalog(cfg.Exam)
	if err != nil {
		zlog.Fatal("build exam catalog", zap.Error(err))
	}

	tp, err := tracing.Init(cfg.Tracing)
	if err != nil {
		zlog.Fatal("init tracing", zap.Error(err))
	}

	m := metrics.New()
	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL())

	// Stores and services
	authStore := auth.NewStore(db)
	contentService := content.NewService(content.NewStore(db), zlog.Named("content"))
	examService := exam.NewService(exam.NewStore(db), catalog, zlog.Named("exam"), m)
	resultsService := results.NewService(results.NewStore(db))
	explainService := explain.NewService(
		contentService,
		explain.NewClient(cfg.Explain, zlog.Named("explain")),
		zlog.Named("explain"),
	)

	// Router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(issuer))

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminOnly(authStore.Role))

	auth.NewHandler(authStore, issuer, zlog.Named("auth")).RegisterRoutes(api, protected)
	content.NewHandler(contentService, zlog.Named("content")).RegisterRoutes(api, admin)
	exam.NewHandler(examService, zlog.Named("exam")).RegisterRoutes(protected)
	results.NewHandler(resultsService, zlog.Named("results")).RegisterRoutes(api, protected)
	explain.NewHandler(explainService, zlog.Named("explain")).RegisterRoutes(protected, admin)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		zlog.Fatal("parse trusted proxies", zap.Error(err))
	}
	limiter := middleware.NewRateLimiter(
		cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute,
		proxies,
	)
	done := make(chan struct{})
	go limiter.Cleanup(done)

	r.Use(
		tracing.Middleware,
		middleware.RequestLogger(zlog.Named("http"), proxies),
		m.Middleware,
		limiter.Middleware,
	)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")
	close(done)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if err := tracing.Shutdown(ctx, tp); err != nil {
		zlog.Error("flush traces", zap.Error(err))
	}
	zlog.Info("server exited")
}
