// password — проверка и хэширование паролей (bcrypt).
//
// Hasher не хранит состояния кроме стоимости bcrypt и безопасен
// для конкурентного использования.
package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength — минимальная длина нового пароля в символах.
	MinLength = 8
	// MaxBytes — предел bcrypt: байты сверх него не участвуют в хэше.
	MaxBytes = 72
)

var (
	// ErrEmpty — пароль пустой.
	ErrEmpty = errors.New("password is empty")
	// ErrTooShort — пароль короче MinLength.
	ErrTooShort = errors.New("password is too short")
	// ErrTooLong — пароль длиннее MaxBytes байт.
	ErrTooLong = errors.New("password is too long")
)

// Hasher хэширует и сверяет пароли с фиксированной стоимостью bcrypt.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher создаёт Hasher. cost вне [bcrypt.MinCost, bcrypt.MaxCost]
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// Хэш-заглушка для сравнения, когда пользователь не найден.
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("password: generate dummy hash: %v", err))
	}

	return &Hasher{cost: cost, dummy: dummy}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"

	if len(plain) > MaxBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сообщает, соответствует ли пароль хэшу.
// Повреждённый хэш или пустой пароль дают false, а не ошибку.
func (h *Hasher) Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// VerifyMissing тратит на сравнение столько же времени, сколько Verify,
// и всегда возвращает false. Вызывается, когда учётная запись не найдена.
func (h *Hasher) VerifyMissing(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
	return false
}

// Validate проверяет новый пароль на минимальные требования.
func Validate(plain string) error {
	const op = "password.Validate"

	switch {
	case plain == "":
		return fmt.Errorf("%s: %w", op, ErrEmpty)
	case utf8.RuneCountInString(plain) < MinLength:
		return fmt.Errorf("%s: %w", op, ErrTooShort)
	case len(plain) > MaxBytes:
		return fmt.Errorf("%s: %w", op, ErrTooLong)
	}

	return nil
}
