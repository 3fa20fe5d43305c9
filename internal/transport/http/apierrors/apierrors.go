// apierrors стандартизирует ответы об ошибках REST API.
// На вход принимает ошибку сервисного слоя, на выход даёт HTTP-статус
// и краткое безопасное сообщение без внутренних деталей.
//
// Сбои инфраструктуры (хранилище сессий, каталог пользователей) никогда
// не превращаются в 401: это 503 или 500.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-photo-sharing/internal/service"
)

// StatusClientClosedRequest — нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidArgument — тело запроса не разобрано (битый JSON, лишние поля).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthenticated — в запросе нет Bearer-токена.
	ErrUnauthenticated = errors.New("missing bearer token")
)

// APIError — единый формат ошибки для клиента.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект ответа.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// table проверяется по порядку: более узкие ошибки стоят раньше
// (WrongTokenType лежит в цепочке под InvalidToken).
var table = []mapping{
	{ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "missing bearer token"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid email or password"},
	{service.ErrAccountDisabled, http.StatusForbidden, "account_disabled", "account is disabled"},
	{service.ErrWrongTokenType, http.StatusUnauthorized, "wrong_token_type", "wrong token type"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{service.ErrTokenAlreadyInvalid, http.StatusUnauthorized, "token_already_invalid", "token already invalidated"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "token has been invalidated"},
	{service.ErrSessionExpired, http.StatusUnauthorized, "session_expired", "session expired"},
	{service.ErrUserNotFoundOrInactive, http.StatusUnauthorized, "user_inactive", "user not found or inactive"},
	{service.ErrIncorrectCurrentPassword, http.StatusBadRequest, "incorrect_password", "incorrect current password"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password does not meet requirements"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email format"},
	{service.ErrInvalidUsername, http.StatusBadRequest, "invalid_username", "invalid username"},
	{service.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{service.ErrUserExists, http.StatusConflict, "already_exists", "user already exists"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
// nil и неизвестные ошибки дают 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if errors.Is(err, m.target) {
				return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.message}}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// WriteError пишет статус и тело ошибки, добавляя request_id из X-Request-Id.
// Для 401 выставляется WWW-Authenticate.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="auth"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
