package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/apierrors"
)

// Recover перехватывает panic и отвечает 500/internal.
// Детали паники остаются в логе.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.From(r.Context()).Error().
						Str("path", r.URL.Path).
						Interface("panic", rec).
						Str("stack", string(debug.Stack())).
						Msg("panic_recovered")

					apierrors.WriteError(w, r, errors.New("internal"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
