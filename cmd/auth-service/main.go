package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/pribylovaa/go-photo-sharing/internal/app"
	"github.com/pribylovaa/go-photo-sharing/internal/config"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/service"
	grpcsrv "github.com/pribylovaa/go-photo-sharing/internal/transport/grpc"
	httpapi "github.com/pribylovaa/go-photo-sharing/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
)

// healthPeriod — период проверки зависимостей для health.
const healthPeriod = 5 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	logger := log.New(cfg.Env, os.Stdout)
	zlog.Logger = logger
	logger.Info().Str("env", cfg.Env).Msg("starting application")

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	rootCtx = log.Into(rootCtx, &logger)

	if err := run(rootCtx, cfg, &logger); err != nil {
		logger.Error().Err(err).Msg("service_failed")
		rootCancel()
		os.Exit(1)
	}

	logger.Info().Msg("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	a, err := app.New(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info().Msg("service_initialized")

	grpc_prometheus.EnableHandlingTimeHistogram()

	gsrv := grpcsrv.New(grpcsrv.Options{
		Logger:     logger,
		Timeout:    cfg.Timeouts.Service,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	// HTTP: REST API + ops-эндпойнты.
	root := chi.NewRouter()
	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if gsrv.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", httpapi.NewRouter(a.Service, httpapi.Options{
		Logger:     logger,
		Timeout:    cfg.Timeouts.Service,
		TrustProxy: cfg.HTTP.TrustProxy,
	}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		return err
	}

	serveErrCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", httpSrv.Addr).Msg("http_listen_start")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	go func() {
		logger.Info().Str("addr", lis.Addr().String()).Msg("grpc_listen_start")
		if err := gsrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	go gsrv.Watch(ctx, healthPeriod, a.Ping)

	startSessionJanitor(ctx, a.Service, cfg.Janitor.Period)

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown_requested")
	case err := <-serveErrCh:
		logger.Error().Err(err).Msg("serve_failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gsrv.Shutdown(shutdownCtx)
	logger.Info().Msg("grpc_stopped")

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http_shutdown_failed")
	}

	return nil
}

// startSessionJanitor периодически удаляет сессии с истёкшим сроком.
func startSessionJanitor(ctx context.Context, svc *service.Service, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				// Ошибки логирует сам сервис.
				_, _ = svc.CleanupExpiredSessions(ctx)
			}
		}
	}()
}
