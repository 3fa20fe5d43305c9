// handlers — REST-обработчики auth-сервиса. Здесь только разбор запроса,
// вызов сервисного слоя и сериализация ответа; ошибки маппит apierrors.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/middleware"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 16

// AuthService — операции сервисного слоя, доступные через REST
// (реализация: service.Service).
type AuthService interface {
	Login(ctx context.Context, email, pass string, client models.ClientInfo) (*models.AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, *models.Session, error)
	ValidateToken(ctx context.Context, accessToken string) bool
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	LogoutAllSessions(ctx context.Context, userID int64) (int, error)
	UserSessions(ctx context.Context, userID int64) ([]models.SessionInfo, error)
	RevokeSession(ctx context.Context, userID int64, accessToken string) error
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc AuthService
}

func New(svc AuthService) *Handlers {
	return &Handlers{svc: svc}
}

// okResponse — ответ операций без полезной нагрузки.
type okResponse struct {
	OK bool `json:"ok"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: неизвестные поля и хвост после
// объекта отклоняются.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return apierrors.ErrInvalidArgument
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apierrors.ErrInvalidArgument
	}

	return nil
}

// caller проверяет Bearer-токен запроса и возвращает владельца и его сессию.
// При ошибке ответ уже записан.
func (h *Handlers) caller(w http.ResponseWriter, r *http.Request) (*models.User, *models.Session, string, bool) {
	tok, ok := middleware.TokenFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
		return nil, nil, "", false
	}

	user, sess, err := h.svc.Authenticate(r.Context(), tok)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return nil, nil, "", false
	}

	return user, sess, tok, true
}

// clientInfo собирает метаданные клиента. RemoteAddr уже исправлен chi RealIP.
func clientInfo(r *http.Request) models.ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	return models.ClientInfo{IPAddress: ip, UserAgent: r.UserAgent()}
}
