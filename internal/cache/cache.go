// cache — хранилище сессий и чёрный список токенов поверх Redis.
//
// Схема ключей (prefix по умолчанию "auth:"):
//
//	session:user:{uid}:{sid}  hash  запись сессии, TTL = TTL access-токена
//	user_sessions:{uid}       set   id активных сессий пользователя
//	token:{sha256(access)}    hash  {uid, sid}, TTL = TTL access-токена
//	refresh_token:{sha256(rt)} hash {uid, sid}, TTL = TTL refresh-токена
//	blacklist:{sha256(access)} hash {uid, reason, at, exp}, TTL ≤ остатка жизни токена
//
// Многоключевые изменения выполняются одним MULTI/EXEC (TxPipeline), поэтому
// другие клиенты не видят промежуточных состояний. Состояние между запросами
// живёт только в Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-photo-sharing/internal/config"
	"github.com/pribylovaa/go-photo-sharing/internal/token"
)

var (
	// ErrNotFound — сессия или запись не найдена (или уже истекла).
	ErrNotFound = errors.New("session not found")

	// ErrUnavailable — Redis недоступен или не ответил вовремя.
	// Транспорт: HTTP 503, клиент может повторить запрос.
	ErrUnavailable = errors.New("session store unavailable")
)

const defaultPrefix = "auth:"

// Options — общие параметры хранилища сессий и чёрного списка.
type Options struct {
	Prefix     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now — источник времени; nil означает time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = defaultPrefix
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = 7 * 24 * time.Hour
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = token.RefreshTokenTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

// NewClient создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// с сетевыми таймаутами из конфигурации и проверяет соединение.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	const op = "cache.NewClient"

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, unavailable(op, err)
	}

	return rdb, nil
}

// keys строит имена ключей с общим префиксом.
type keys struct{ prefix string }

func (k keys) session(uid int64, sid string) string {
	return k.prefix + "session:user:" + strconv.FormatInt(uid, 10) + ":" + sid
}

func (k keys) sessionPattern() string { return k.prefix + "session:user:*" }

func (k keys) userSessions(uid int64) string {
	return k.prefix + "user_sessions:" + strconv.FormatInt(uid, 10)
}

func (k keys) access(tok string) string { return k.prefix + "token:" + hashToken(tok) }

func (k keys) refresh(tok string) string { return k.prefix + "refresh_token:" + hashToken(tok) }

func (k keys) blacklist(tok string) string { return k.prefix + "blacklist:" + hashToken(tok) }

// hashToken — ключи содержат хэш токена, сам токен хранится только в записи сессии.
func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func formatTime(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func parseTime(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.UnixMilli(ms).UTC(), nil
}
