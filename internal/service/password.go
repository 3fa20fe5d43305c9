package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/password"
	"github.com/pribylovaa/go-photo-sharing/internal/pkg/log"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
)

// ChangePassword меняет пароль после проверки текущего и завершает
// все сессии пользователя.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) (err error) {
	const op = "service.password.ChangePassword"

	defer func() { s.observe("change_password", err) }()

	lg := log.From(ctx)

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		lg.Info().Str("op", op).Int64("user_id", userID).Msg("change_password_wrong_current")
		return fmt.Errorf("%s: %w", op, ErrIncorrectCurrentPassword)
	}

	if err := password.Validate(next); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.users.UpdateUser(ctx, userID, storage.UserUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error().Str("op", op).Int64("user_id", userID).Err(err).Msg("password_update_failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.sessions.InvalidateAllSessions(ctx, userID)
	if err != nil {
		lg.Error().Str("op", op).Int64("user_id", userID).Err(err).Msg("sessions_invalidate_failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.SessionsRevoked(models.ReasonRevokeAll, n)
	lg.Info().Str("op", op).Int64("user_id", userID).Int("sessions", n).Msg("password_changed")

	return nil
}

// CreateUser заводит пользователя в каталоге (административная операция).
func (s *Service) CreateUser(ctx context.Context, email, username, fullName, plain string) (*models.User, error) {
	const op = "service.password.CreateUser"

	normEmail, err := normalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	if err := password.Validate(plain); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.SaveUser(ctx, &models.User{
		Email:        normEmail,
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
