package middleware

import (
	"context"
	"net/http"
	"strings"
)

// AuthBearer извлекает Bearer-токен из Authorization и кладёт его в контекст.
// Запрос без токена проходит дальше: обязательность решает обработчик.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok, ok := bearer(r.Header.Get("Authorization")); ok {
				r = r.WithContext(context.WithValue(r.Context(), ctxAuthToken, tok))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearer разбирает "Bearer <token>"; схема сравнивается без учёта регистра.
func bearer(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
