package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
)

// Logging кладёт request-scoped логгер (с request_id) в контекст
// и пишет одну запись "http" по завершении запроса.
func Logging(base *zerolog.Logger) Middleware {
	if base == nil {
		base = &zlog.Logger
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With().Str("request_id", RequestIDFrom(r.Context())).Logger()
			r = r.WithContext(log.Into(r.Context(), &l))

			sw := newStatusWriter(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_ip", remoteIP(r)).
				Int("status", sw.Status()).
				Dur("dur", time.Since(start)).
				Int("bytes", sw.count).
				Msg("http")
		})
	}
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
