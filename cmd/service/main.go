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
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/denizerdem/turkiye-weather-service/internal/cache"
	"github.com/denizerdem/turkiye-weather-service/internal/client"
	"github.com/denizerdem/turkiye-weather-service/internal/config"
	"github.com/denizerdem/turkiye-weather-service/internal/geo"
	httphandler "github.com/denizerdem/turkiye-weather-service/internal/http"
	"github.com/denizerdem/turkiye-weather-service/internal/lifecycle"
	"github.com/denizerdem/turkiye-weather-service/internal/observability"
	"github.com/denizerdem/turkiye-weather-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	directory, err := geo.New()
	if err != nil {
		logger.Fatal("province directory", zap.Error(err))
	}
	logger.Info("province directory loaded", zap.Int("provinces", len(directory.Provinces())))

	meteo := client.New(
		cfg.ForecastURL,
		cfg.ArchiveURL,
		cfg.UpstreamTimeout,
		cfg.RetryAttempts,
		cfg.RetryDelay,
		logger,
	)
	weatherService := service.New(directory, meteo, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, directory, logger)

	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	if cfg.WarmCurrentCache {
		warmer := cache.NewWarmer(weatherService, logger)
		go func() {
			if err := warmer.WarmPeriodic(warmCtx, cfg.WarmInterval); err != nil && err != context.Canceled {
				logger.Error("periodic cache warming stopped", zap.Error(err))
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/", handler.GetRoot).Methods("GET")
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.PathPrefix("/api").Subrouter()
	api.Use(httphandler.RateLimitMiddleware(limiter))
	api.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/weather", handler.GetWeather).Methods("GET")
	api.HandleFunc("/weather/current", handler.GetCurrent).Methods("GET")
	api.HandleFunc("/weather/snapshot", handler.GetSnapshot).Methods("GET")
	api.HandleFunc("/provinces", handler.GetProvinces).Methods("GET")
	api.HandleFunc("/provinces/{plate_code}", handler.GetProvince).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	warmCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.DrainCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()))
	}
	logger.Info("shutdown complete")
}
