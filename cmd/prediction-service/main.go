package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/periop-ai/platform/pkg/common/config"
	"github.com/periop-ai/platform/pkg/common/database"
	"github.com/periop-ai/platform/pkg/common/kafka"
	"github.com/periop-ai/platform/pkg/common/logger"
	"github.com/periop-ai/platform/pkg/medmap"
	"github.com/periop-ai/platform/pkg/middleware"
	"github.com/periop-ai/platform/pkg/observability/metrics"
	"github.com/periop-ai/platform/pkg/pipeline"
	"github.com/periop-ai/platform/pkg/serving"
)

func main() {
	logger.Init()
	cfg := config.Load()

	pipe, err := pipeline.Load(cfg.ModelArtifactPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.ModelArtifactPath).Fatal("failed to load model artifact")
	}

	table, err := medmap.Load(cfg.MedicationMapPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.MedicationMapPath).Fatal("failed to load medication map")
	}

	rules, err := medmap.LoadRules(cfg.FallbackRulesPath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.FallbackRulesPath).Fatal("failed to load fallback rules")
	}

	recommender := medmap.NewRecommender(table, rules)

	var repo *serving.Repository
	if cfg.AuditLogEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to postgres")
		}
		repo = serving.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate prediction log tables")
		}
	}

	var cache *serving.Cache
	if cfg.PredictionCacheEnabled {
		cache = serving.NewCache(database.GetRedis(), cfg.PredictionCacheTTL)
	}

	var producer *kafka.Producer
	if cfg.PredictionEventsTopic != "" {
		producer = kafka.NewProducer(cfg.PredictionEventsTopic)
		defer producer.Close()
	}

	svc := serving.NewService(pipe, recommender, repo, cache, producer)
	handler := serving.NewHTTPHandler(svc, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Recovery, middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	// Static form client
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":     cfg.ServerHost,
			"port":     cfg.ServerPort,
			"artifact": cfg.ModelArtifactPath,
			"med_map":  recommender.TableSource(),
		}).Info("Prediction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prediction Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	if repo != nil {
		if err := database.ClosePostgres(); err != nil {
			logger.Log.WithError(err).Warn("failed to close postgres")
		}
	}
	if cache != nil {
		if err := database.CloseRedis(); err != nil {
			logger.Log.WithError(err).Warn("failed to close redis")
		}
	}

	logger.Log.Info("Prediction Service stopped")
}
