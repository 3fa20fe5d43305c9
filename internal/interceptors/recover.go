package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
)

// Recover перехватывает паники в обработчиках, логирует их со стеком
// и отвечает клиенту codes.Internal без деталей.
// Логгер из контекста имеет приоритет над base.
func Recover(base *zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		l := log.From(ctx)
		if l == &zlog.Logger && base != nil {
			l = base
		}

		defer func() {
			if r := recover(); r != nil {
				l.Error().
					Str("method", info.FullMethod).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("panic_recovered")

				err = status.Error(codes.Internal, "internal server error")
				resp = nil
			}
		}()

		return handler(ctx, req)
	}
}
