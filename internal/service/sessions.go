package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-photo-sharing/internal/cache"
	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
)

// Authenticate проверяет access-токен по цепочке: чёрный список → подпись
// и срок → живая сессия → активный владелец.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.User, *models.Session, error) {
	const op = "service.sessions.Authenticate"

	listed, err := s.blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if listed {
		if e, err := s.blacklist.Entry(ctx, accessToken); err == nil {
			log.From(ctx).Info().Str("op", op).Int64("user_id", e.UserID).Str("reason", e.Reason).Msg("revoked_token_presented")
		}

		return nil, nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	uid, err := subjectID(claims)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: bad subject", op, ErrInvalidToken)
	}

	sess, err := s.sessions.SessionByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if sess.UserID != uid {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	user, err := s.users.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFoundOrInactive)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrUserNotFoundOrInactive)
	}

	return user, sess, nil
}

// CurrentUser возвращает профиль владельца токена и сведения о его сессии.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.UserView, error) {
	const op = "service.sessions.CurrentUser"

	user, sess, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return models.NewUserView(user, sess), nil
}

// ValidateToken сворачивает любую неудачу Authenticate в false.
// Сбои инфраструктуры дополнительно логируются.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) bool {
	const op = "service.sessions.ValidateToken"

	_, _, err := s.Authenticate(ctx, accessToken)
	if err != nil && !IsRejection(err) {
		log.From(ctx).Warn().Str("op", op).Err(err).Msg("validate_token_failed")
	}

	return err == nil
}

// LogoutAllSessions завершает все сессии пользователя и возвращает их число.
func (s *Service) LogoutAllSessions(ctx context.Context, userID int64) (n int, err error) {
	const op = "service.sessions.LogoutAllSessions"

	defer func() { s.observe("logout_all", err) }()

	n, err = s.sessions.InvalidateAllSessions(ctx, userID)
	if err != nil {
		log.From(ctx).Error().Str("op", op).Int64("user_id", userID).Err(err).Msg("sessions_invalidate_failed")
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.SessionsRevoked(models.ReasonRevokeAll, n)
	log.From(ctx).Info().Str("op", op).Int64("user_id", userID).Int("sessions", n).Msg("sessions_invalidated")

	return n, nil
}

// RevokeSession явно отзывает одну сессию пользователя по её access-токену.
func (s *Service) RevokeSession(ctx context.Context, userID int64, accessToken string) (err error) {
	const op = "service.sessions.RevokeSession"

	defer func() { s.observe("revoke_session", err) }()

	removed, err := s.sessions.RevokeSession(ctx, userID, accessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if removed {
		s.metrics.SessionsRevoked(models.ReasonRevoked, 1)
	}

	return nil
}

// UserSessions возвращает живые сессии пользователя без токенов.
func (s *Service) UserSessions(ctx context.Context, userID int64) ([]models.SessionInfo, error) {
	const op = "service.sessions.UserSessions"

	sessions, err := s.sessions.UserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}

	return infos, nil
}

// Session возвращает сведения об одной живой сессии пользователя.
func (s *Service) Session(ctx context.Context, userID int64, sessionID string) (models.SessionInfo, error) {
	const op = "service.sessions.Session"

	sess, err := s.sessions.Session(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return models.SessionInfo{}, fmt.Errorf("%s: %w", op, ErrSessionExpired)
		}

		return models.SessionInfo{}, fmt.Errorf("%s: %w", op, err)
	}

	return sess.Info(), nil
}

// CleanupExpiredSessions удаляет сессии с истёкшим сроком.
// Вызывается периодически; параллельный запуск нескольких экземпляров безопасен.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int, error) {
	const op = "service.sessions.CleanupExpiredSessions"

	n, err := s.sessions.CleanupExpiredSessions(ctx)
	s.metrics.SessionsCleaned(n)
	if err != nil {
		log.From(ctx).Error().Str("op", op).Int("removed", n).Err(err).Msg("sessions_cleanup_failed")
		return n, fmt.Errorf("%s: %w", op, err)
	}

	if n > 0 {
		log.From(ctx).Info().Str("op", op).Int("removed", n).Msg("sessions_cleaned")
	}

	return n, nil
}
