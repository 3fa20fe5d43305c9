//go:generate mockgen -source=storage.go -destination=../../mocks/mock_storage.go -package=mocks

// storage задаёт контракт каталога пользователей, которым пользуется
// auth-сервис: поиск по e-mail/ID, создание и частичное обновление записи.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
)

var (
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/username).
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyUpdate — в UserUpdate не задано ни одного поля.
	ErrEmptyUpdate = errors.New("empty update")
)

// UserUpdate — частичное обновление пользователя.
// Обновляются только непустые указатели; неизвестных полей быть не может.
type UserUpdate struct {
	Email           *string
	Username        *string
	FullName        *string
	PasswordHash    *string
	IsActive        *bool
	IsVerified      *bool
	ProfileImageURL *string
}

// Empty сообщает, что обновлять нечего.
func (u UserUpdate) Empty() bool {
	return u.Email == nil && u.Username == nil && u.FullName == nil &&
		u.PasswordHash == nil && u.IsActive == nil && u.IsVerified == nil &&
		u.ProfileImageURL == nil
}

// UserStorage — контракт каталога пользователей.
type UserStorage interface {
	// SaveUser создаёт пользователя; ID и таймстемпы заполняются хранилищем.
	SaveUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// UpdateUser применяет частичное обновление и сдвигает updated_at.
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (*models.User, error)
}
