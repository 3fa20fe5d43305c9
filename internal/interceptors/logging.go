// interceptors — серверные unary-интерсепторы gRPC: логирование,
// перехват паник и дедлайн по умолчанию.
package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
)

// UnaryLoggingInterceptor логирует unary-вызовы с контекстным логгером.
//
// Поведение:
//   - x-request-id берётся из входящего metadata, иначе генерируется UUID;
//   - логгер с request_id, method и peer кладётся в контекст (pkg/log);
//   - после handler пишется одна запись "grpc" с code и dur.
func UnaryLoggingInterceptor(base *zerolog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = &zlog.Logger
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		var rid string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}

		peerStr := "-"
		if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
			peerStr = p.Addr.String()
		}

		l := base.With().
			Str("request_id", rid).
			Str("method", info.FullMethod).
			Str("peer", peerStr).
			Logger()
		ctx = log.Into(ctx, &l)

		resp, err := handler(ctx, req)

		l.Info().
			Str("code", status.Code(err).String()).
			Dur("dur", time.Since(start)).
			Msg("grpc")

		return resp, err
	}
}
