// grpc поднимает gRPC-сервер auth-сервиса: стандартный health-сервис
// (grpc.health.v1), метрики grpc_prometheus и серверные интерсепторы.
//
// Статус health отражает готовность зависимостей (Redis, PostgreSQL):
// Watch периодически вызывает проверку и переключает SERVING/NOT_SERVING.
package grpc

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-photo-sharing/internal/interceptors"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
)

// ServiceName — имя сервиса в health-ответах (помимо пустого "").
const ServiceName = "photo.auth"

// Options — параметры gRPC-сервера.
type Options struct {
	Logger *zerolog.Logger
	// Timeout — дедлайн вызова, если клиент его не передал.
	Timeout time.Duration
	// Reflection включает server reflection (local/dev).
	Reflection bool
}

// Server — gRPC-сервер с health-сервисом.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	ready  atomic.Bool
}

// New собирает сервер. Статус health до первого SetServing — NOT_SERVING.
func New(opts Options) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(opts.Logger),
			interceptors.UnaryLoggingInterceptor(opts.Logger),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	s := &Server{srv: srv, health: hs}
	s.SetServing(false)

	return s
}

// SetServing переключает статус health для "" и ServiceName.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}

	s.ready.Store(ok)
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Ready сообщает последний выставленный статус (используется /healthz).
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Watch сразу и затем каждые period вызывает check и выставляет статус
// по её результату. Возвращается при отмене ctx.
func (s *Server) Watch(ctx context.Context, period time.Duration, check func(context.Context) error) {
	const op = "transport.grpc.Watch"

	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, period)
		defer cancel()

		err := check(pctx)
		if err != nil && s.Ready() {
			log.From(ctx).Warn().Str("op", op).Err(err).Msg("dependency_check_failed")
		}
		if err == nil && !s.Ready() {
			log.From(ctx).Info().Str("op", op).Msg("dependencies_ready")
		}
		s.SetServing(err == nil)
	}

	probe()

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			probe()
		}
	}
}

// Serve блокируется, обслуживая lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Shutdown переводит health в NOT_SERVING и останавливает сервер,
// дожидаясь активных вызовов до истечения ctx.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()
	s.ready.Store(false)

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.srv.Stop()
	}
}
