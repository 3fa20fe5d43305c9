// service содержит бизнес-логику аутентификации: вход по паролю, выпуск
// и ротацию токенов, проверку токенов, завершение сессий и смену пароля.
//
// Основные аспекты:
//   - Service не хранит состояние между запросами: сессии и отозванные токены
//     живут в хранилище сессий (Redis), пользователи в каталоге (PostgreSQL).
//     Экземпляр безопасен для конкурентного использования.
//   - Ошибки возвращаются с префиксом op и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
//   - Сбой инфраструктуры (ErrUnavailable) никогда не выдаётся за ошибку
//     аутентификации.
package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/pribylovaa/go-photo-sharing/internal/cache"
	"github.com/pribylovaa/go-photo-sharing/internal/metrics"
	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/password"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
	"github.com/pribylovaa/go-photo-sharing/internal/token"
)

var (
	// ErrInvalidCredentials — неизвестный e-mail или неверный пароль.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled — пароль верен, но учётная запись отключена.
	// Транспорт: HTTP 403.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidToken — токен не прошёл проверку подписи/срока/вида.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType — токен валиден, но не того вида (остаётся в цепочке
	// под ErrInvalidToken). Транспорт: HTTP 401.
	ErrWrongTokenType = token.ErrWrongTokenType

	// ErrTokenAlreadyInvalid — logout с уже отозванным токеном.
	// Транспорт: HTTP 401.
	ErrTokenAlreadyInvalid = errors.New("token already invalidated")

	// ErrTokenRevoked — отозванный токен предъявлен для доступа.
	// Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token invalidated")

	// ErrSessionExpired — подпись валидна, но сессии уже нет.
	// Транспорт: HTTP 401.
	ErrSessionExpired = errors.New("session expired")

	// ErrUserNotFoundOrInactive — владелец токена удалён или отключён.
	// Транспорт: HTTP 401.
	ErrUserNotFoundOrInactive = errors.New("user not found or inactive")

	// ErrIncorrectCurrentPassword — смена пароля с неверным текущим паролем.
	// Транспорт: HTTP 400.
	ErrIncorrectCurrentPassword = errors.New("incorrect current password")

	// ErrUserNotFound — пользователь не найден (смена пароля, админ-операции).
	// Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrWeakPassword — новый пароль не проходит минимальные требования.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrInvalidEmail — e-mail некорректен (создание пользователя).
	// Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — пустой username (создание пользователя).
	// Транспорт: HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrUserExists — e-mail или username уже заняты.
	// Транспорт: HTTP 409.
	ErrUserExists = errors.New("user already exists")

	// ErrUnavailable — хранилище сессий недоступно или не ответило вовремя.
	// Транспорт: HTTP 503.
	ErrUnavailable = cache.ErrUnavailable
)

// SessionStore — хранилище сессий (реализация: cache.SessionStore).
type SessionStore interface {
	StoreSession(ctx context.Context, userID int64, accessToken, refreshToken string, client models.ClientInfo) (string, error)
	Session(ctx context.Context, userID int64, sessionID string) (*models.Session, error)
	SessionByAccessToken(ctx context.Context, accessToken string) (*models.Session, error)
	InvalidateSession(ctx context.Context, userID int64, accessToken string) (bool, error)
	RevokeSession(ctx context.Context, userID int64, accessToken string) (bool, error)
	InvalidateAllSessions(ctx context.Context, userID int64) (int, error)
	UpdateSession(ctx context.Context, userID int64, oldRefresh, newAccess, newRefresh string) (string, error)
	UserSessions(ctx context.Context, userID int64) ([]*models.Session, error)
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

// TokenBlacklist — журнал отозванных токенов (реализация: cache.Blacklist).
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, tok string) (bool, error)
	Entry(ctx context.Context, tok string) (*models.BlacklistEntry, error)
}

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	users     storage.UserStorage
	sessions  SessionStore
	blacklist TokenBlacklist
	tokens    *token.Codec
	hasher    *password.Hasher
	metrics   *metrics.Metrics
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает счётчики Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New создаёт новый экземпляр Service.
func New(
	users storage.UserStorage,
	sessions SessionStore,
	blacklist TokenBlacklist,
	tokens *token.Codec,
	hasher *password.Hasher,
	opts ...Option,
) *Service {
	s := &Service{
		users:     users,
		sessions:  sessions,
		blacklist: blacklist,
		tokens:    tokens,
		hasher:    hasher,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// subjectID извлекает id пользователя из claim sub.
func subjectID(c *token.Claims) (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// rejections — ошибки, вызванные запросом клиента, а не инфраструктурой.
var rejections = []error{
	ErrInvalidCredentials,
	ErrAccountDisabled,
	ErrInvalidToken,
	ErrTokenAlreadyInvalid,
	ErrTokenRevoked,
	ErrSessionExpired,
	ErrUserNotFoundOrInactive,
	ErrIncorrectCurrentPassword,
	ErrUserNotFound,
	ErrWeakPassword,
	ErrInvalidEmail,
	ErrInvalidUsername,
	ErrUserExists,
}

// IsRejection сообщает, что err — отказ по вине клиента (4xx).
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func (s *Service) observe(op string, err error) {
	switch {
	case err == nil:
		s.metrics.Observe(op, metrics.ResultOK)
	case errors.Is(err, ErrUnavailable):
		s.metrics.Observe(op, metrics.ResultUnavailable)
	case IsRejection(err):
		s.metrics.Observe(op, metrics.ResultRejected)
	default:
		s.metrics.Observe(op, metrics.ResultError)
	}
}
