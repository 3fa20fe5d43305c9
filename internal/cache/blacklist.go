package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
)

// minBlacklistTTL — нижняя граница TTL записи, чтобы Expire не удалил ключ сразу.
const minBlacklistTTL = time.Second

// Blacklist — журнал отозванных access-токенов.
// Запись живёт не дольше оставшегося срока действия токена.
type Blacklist struct {
	rdb       *redis.Client
	keys      keys
	accessTTL time.Duration
	now       func() time.Time
}

// NewBlacklist создаёт журнал отозванных токенов.
func NewBlacklist(rdb *redis.Client, opts Options) *Blacklist {
	opts = opts.withDefaults()

	return &Blacklist{
		rdb:       rdb,
		keys:      keys{prefix: opts.Prefix},
		accessTTL: opts.AccessTTL,
		now:       opts.Now,
	}
}

// Add заносит токен в чёрный список до момента expiresAt.
// Нулевой expiresAt означает полный TTL access-токена.
func (b *Blacklist) Add(ctx context.Context, tok string, userID int64, reason string, expiresAt time.Time) error {
	const op = "cache.blacklist.Add"

	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		b.add(ctx, pipe, tok, userID, reason, expiresAt)
		return nil
	})
	if err != nil {
		return unavailable(op, err)
	}

	return nil
}

// add ставит команды записи в чужой пакет команд; используется
// хранилищем сессий, чтобы отзыв шёл в одной транзакции с удалением сессии.
func (b *Blacklist) add(ctx context.Context, pipe redis.Pipeliner, tok string, userID int64, reason string, expiresAt time.Time) {
	now := b.now().UTC()
	ttl := b.ttlFor(now, expiresAt)
	key := b.keys.blacklist(tok)

	pipe.HSet(ctx, key, map[string]any{
		"uid":    strconv.FormatInt(userID, 10),
		"reason": reason,
		"at":     formatTime(now),
		"exp":    formatTime(now.Add(ttl)),
	})
	pipe.Expire(ctx, key, ttl)
}

// ttlFor = expiresAt - now, ограниченный сверху TTL access-токена.
func (b *Blacklist) ttlFor(now, expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return b.accessTTL
	}

	ttl := expiresAt.Sub(now)
	switch {
	case ttl < minBlacklistTTL:
		return minBlacklistTTL
	case ttl > b.accessTTL:
		return b.accessTTL
	}

	return ttl
}

// IsBlacklisted сообщает, отозван ли токен.
func (b *Blacklist) IsBlacklisted(ctx context.Context, tok string) (bool, error) {
	const op = "cache.blacklist.IsBlacklisted"

	n, err := b.rdb.Exists(ctx, b.keys.blacklist(tok)).Result()
	if err != nil {
		return false, unavailable(op, err)
	}

	return n > 0, nil
}

// Entry возвращает запись чёрного списка по токену.
func (b *Blacklist) Entry(ctx context.Context, tok string) (*models.BlacklistEntry, error) {
	const op = "cache.blacklist.Entry"

	m, err := b.rdb.HGetAll(ctx, b.keys.blacklist(tok)).Result()
	if err != nil {
		return nil, unavailable(op, err)
	}

	if len(m) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	uid, err := strconv.ParseInt(m["uid"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: corrupt entry: %w", op, err)
	}

	at, err := parseTime(m["at"])
	if err != nil {
		return nil, fmt.Errorf("%s: corrupt entry: %w", op, err)
	}

	exp, err := parseTime(m["exp"])
	if err != nil {
		return nil, fmt.Errorf("%s: corrupt entry: %w", op, err)
	}

	return &models.BlacklistEntry{
		UserID:        uid,
		Reason:        m["reason"],
		BlacklistedAt: at,
		ExpiresAt:     exp,
	}, nil
}
