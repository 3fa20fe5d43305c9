// app собирает зависимости auth-сервиса из конфигурации: каталог
// пользователей (PostgreSQL), хранилище сессий (Redis), кодек токенов,
// bcrypt и сервисный слой. Используется сервисом и authctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-photo-sharing/internal/cache"
	"github.com/pribylovaa/go-photo-sharing/internal/config"
	"github.com/pribylovaa/go-photo-sharing/internal/metrics"
	"github.com/pribylovaa/go-photo-sharing/internal/password"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/service"
	"github.com/pribylovaa/go-photo-sharing/internal/storage/postgres"
	"github.com/pribylovaa/go-photo-sharing/internal/token"
)

// connectTimeout — предел на установку соединений при старте.
const connectTimeout = 10 * time.Second

// App — собранные зависимости.
type App struct {
	Users   *postgres.Storage
	Redis   *redis.Client
	Service *service.Service
}

// New подключается к PostgreSQL и Redis и собирает сервис.
// reg == nil отключает метрики сервисного слоя.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	const op = "app.New"

	lg := log.From(ctx)

	codec, err := token.New(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	users, err := postgres.New(cctx, cfg.DB.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}
	lg.Info().Str("op", op).Msg("postgres_connected")

	rdb, err := cache.NewClient(cctx, cfg.Redis)
	if err != nil {
		users.Close()
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}
	lg.Info().Str("op", op).Msg("redis_connected")

	opts := cache.Options{
		Prefix:     cfg.Redis.Prefix,
		AccessTTL:  codec.AccessTTL(),
		RefreshTTL: token.RefreshTokenTTL,
	}
	var svcOpts []service.Option
	if reg != nil {
		svcOpts = append(svcOpts, service.WithMetrics(metrics.New(reg)))
	}

	svc := service.New(
		users,
		cache.NewSessionStore(rdb, opts),
		cache.NewBlacklist(rdb, opts),
		codec,
		password.NewHasher(cfg.Auth.BcryptCost),
		svcOpts...,
	)

	return &App{Users: users, Redis: rdb, Service: svc}, nil
}

// Ping проверяет доступность PostgreSQL и Redis.
func (a *App) Ping(ctx context.Context) error {
	const op = "app.Ping"

	var errs []error
	if err := a.Users.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает соединения.
func (a *App) Close() {
	_ = a.Redis.Close()
	a.Users.Close()
}
