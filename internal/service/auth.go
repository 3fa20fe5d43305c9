package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-photo-sharing/internal/cache"
	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/redact"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
)

// Login выполняет вход по email+пароль и открывает новую сессию.
// Неизвестный e-mail и неверный пароль неразличимы: оба дают ErrInvalidCredentials
// за сопоставимое время.
func (s *Service) Login(ctx context.Context, email, pass string, client models.ClientInfo) (res *models.AuthResult, err error) {
	const op = "service.auth.Login"

	defer func() { s.observe("login", err) }()

	lg := log.From(ctx)

	normEmail, err := normalizeEmail(email)
	if err != nil || pass == "" {
		s.hasher.VerifyMissing(pass)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.users.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.VerifyMissing(pass)
			lg.Info().Str("op", op).Str("email", redact.Email(normEmail)).Msg("login_unknown_email")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error().Str("op", op).Err(err).Msg("user_lookup_failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(pass, user.PasswordHash) {
		lg.Info().Str("op", op).Int64("user_id", user.ID).Msg("login_invalid_password")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.IsActive {
		lg.Info().Str("op", op).Int64("user_id", user.ID).Msg("login_account_disabled")
		return nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	res, err = s.startSession(ctx, user.ID, client)
	if err != nil {
		lg.Error().Str("op", op).Int64("user_id", user.ID).Err(err).Msg("session_start_failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info().Str("op", op).Int64("user_id", user.ID).Str("session_id", res.SessionID).Msg("login_succeeded")

	return res, nil
}

// Logout завершает сессию access-токена и заносит токен в чёрный список.
// Завершение уже отсутствующей сессии — не ошибка.
func (s *Service) Logout(ctx context.Context, accessToken string) (err error) {
	const op = "service.auth.Logout"

	defer func() { s.observe("logout", err) }()

	lg := log.From(ctx)

	listed, err := s.blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		lg.Error().Str("op", op).Err(err).Msg("blacklist_check_failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	if listed {
		return fmt.Errorf("%s: %w", op, ErrTokenAlreadyInvalid)
	}

	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	uid, err := subjectID(claims)
	if err != nil {
		return fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	removed, err := s.sessions.InvalidateSession(ctx, uid, accessToken)
	if err != nil {
		lg.Error().Str("op", op).Int64("user_id", uid).Err(err).Msg("session_invalidate_failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	if removed {
		s.metrics.SessionsRevoked(models.ReasonLogout, 1)
	}
	lg.Info().Str("op", op).Int64("user_id", uid).Str("token", redact.Token(accessToken)).Bool("session_removed", removed).Msg("logout_succeeded")

	return nil
}

// Refresh обменивает refresh-токен на новую пару. Старая сессия завершается,
// её access-токен отзывается; повторное предъявление того же refresh-токена
// даёт ErrSessionExpired.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (res *models.AuthResult, err error) {
	const op = "service.auth.Refresh"

	defer func() { s.observe("refresh", err) }()

	lg := log.From(ctx)

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	uid, err := subjectID(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	user, err := s.users.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFoundOrInactive)
		}

		lg.Error().Str("op", op).Int64("user_id", uid).Err(err).Msg("user_lookup_failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFoundOrInactive)
	}

	access, refresh, err := s.issuePair(uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sid, err := s.sessions.UpdateSession(ctx, uid, refreshToken, access, refresh)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			lg.Info().Str("op", op).Int64("user_id", uid).Str("token", redact.Token(refreshToken)).Msg("refresh_session_expired")
			return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}

		lg.Error().Str("op", op).Int64("user_id", uid).Err(err).Msg("session_rotate_failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.result(uid, sid, access, refresh), nil
}

// startSession выпускает пару токенов и сохраняет новую сессию.
func (s *Service) startSession(ctx context.Context, uid int64, client models.ClientInfo) (*models.AuthResult, error) {
	const op = "service.auth.startSession"

	access, refresh, err := s.issuePair(uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sid, err := s.sessions.StoreSession(ctx, uid, access, refresh, client)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.result(uid, sid, access, refresh), nil
}

func (s *Service) issuePair(uid int64) (string, string, error) {
	const op = "service.auth.issuePair"

	subject := strconv.FormatInt(uid, 10)

	access, err := s.tokens.IssueAccess(subject)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.tokens.IssueRefresh(subject)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return access, refresh, nil
}

func (s *Service) result(uid int64, sid, access, refresh string) *models.AuthResult {
	return &models.AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    models.TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		UserID:       uid,
		SessionID:    sid,
	}
}

// normalizeEmail проверяет базовый формат email, обрезает пробелы и приводит к нижнему регистру.
func normalizeEmail(raw string) (string, error) {
	const op = "service.auth.normalizeEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}
