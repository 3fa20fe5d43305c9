// token выпускает и проверяет подписанные JWT доступа (access) и обновления (refresh).
//
// Токены несут sub (id пользователя), iat, exp, jti и type. Отсутствие type
// трактуется как access. Codec не хранит состояния и безопасен для
// конкурентного использования.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-photo-sharing/internal/config"
)

// RefreshTokenTTL — фиксированное время жизни refresh-токена.
const RefreshTokenTTL = 30 * 24 * time.Hour

// Kind — вид токена в claim "type".
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken — подпись, формат или срок действия токена не прошли проверку.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType — токен валиден, но другого вида.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrInvalidTTL — попытка выпустить токен с неположительным TTL.
	ErrInvalidTTL = errors.New("token ttl must be positive")

	// ErrInvalidConfig — пустой секрет или неподдерживаемый алгоритм.
	ErrInvalidConfig = errors.New("invalid token codec config")
)

// Claims — полезная нагрузка токена.
type Claims struct {
	Type Kind `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// Kind возвращает вид токена; пустой type означает access.
func (c *Claims) Kind() Kind {
	if c.Type == "" {
		return KindAccess
	}

	return c.Type
}

// Codec подписывает и проверяет токены общим секретом (HS256/HS384/HS512).
type Codec struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	parser    *jwt.Parser
	now       func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (используется в тестах).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New создаёт Codec из настроек auth.
func New(cfg config.AuthConfig, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: %w: empty secret", op, ErrInvalidConfig)
	}

	var method jwt.SigningMethod
	switch cfg.JWTAlgorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%s: %w: algorithm %q", op, ErrInvalidConfig, cfg.JWTAlgorithm)
	}

	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTTL)
	}

	c := &Codec{
		secret:    []byte(cfg.JWTSecret),
		method:    method,
		accessTTL: ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// AccessTTL возвращает время жизни access-токена.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Issue подписывает токен вида kind для subject со сроком ttl.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	const op = "token.Issue"

	if ttl <= 0 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidTTL)
	}

	now := c.now()
	claims := Claims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// jti делает уникальными токены одного субъекта, выпущенные в одну секунду.
			ID: uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// IssueAccess выпускает access-токен с настроенным TTL.
func (c *Codec) IssueAccess(subject string) (string, error) {
	return c.Issue(subject, KindAccess, c.accessTTL)
}

// IssueRefresh выпускает refresh-токен со сроком RefreshTokenTTL.
func (c *Codec) IssueRefresh(subject string) (string, error) {
	return c.Issue(subject, KindRefresh, RefreshTokenTTL)
}

// Verify проверяет подпись и срок действия токена любого вида.
// Ошибки jwt сохраняются в цепочке под ErrInvalidToken.
func (c *Codec) Verify(tok string) (*Claims, error) {
	const op = "token.Verify"

	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// VerifyRefresh проверяет токен и требует вид refresh.
func (c *Codec) VerifyRefresh(tok string) (*Claims, error) {
	const op = "token.VerifyRefresh"

	claims, err := c.Verify(tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Kind() != KindRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongTokenType)
	}

	return claims, nil
}
