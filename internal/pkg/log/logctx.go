// log хранит request-scoped zerolog-логгер в контексте.
package log

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает глобальный zerolog-логгер).
func From(ctx context.Context) *zerolog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*zerolog.Logger); ok && l != nil {
			return l
		}
	}

	return &zlog.Logger
}

// New создаёт логгер под окружение:
// local — человекочитаемый вывод, debug; dev — JSON, debug; prod — JSON, info.
func New(env string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	switch env {
	case envLocal:
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	case envDev:
		return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	case envProd:
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	default:
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
}
