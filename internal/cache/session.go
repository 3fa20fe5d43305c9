package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-photo-sharing/internal/models"
)

// scanBatch — размер страницы SCAN при очистке.
const scanBatch = 100

// SessionStore хранит сессии, их индексы по токенам и набор сессий пользователя.
// Безопасен для конкурентного использования из разных горутин и процессов.
type SessionStore struct {
	rdb        *redis.Client
	keys       keys
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	ledger     *Blacklist
}

// NewSessionStore создаёт хранилище сессий.
func NewSessionStore(rdb *redis.Client, opts Options) *SessionStore {
	opts = opts.withDefaults()

	return &SessionStore{
		rdb:        rdb,
		keys:       keys{prefix: opts.Prefix},
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Now,
		ledger:     NewBlacklist(rdb, opts),
	}
}

// StoreSession создаёт сессию и индексы access/refresh → сессия одной транзакцией.
// Возвращает id новой сессии.
func (s *SessionStore) StoreSession(ctx context.Context, userID int64, accessToken, refreshToken string, client models.ClientInfo) (string, error) {
	const op = "cache.session.StoreSession"

	sess := s.newSession(userID, accessToken, refreshToken, client)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.write(ctx, pipe, sess)
		return nil
	})
	if err != nil {
		return "", unavailable(op, err)
	}

	return sess.ID, nil
}

// Session возвращает сессию по id. ErrNotFound, если записи нет или она истекла.
func (s *SessionStore) Session(ctx context.Context, userID int64, sessionID string) (*models.Session, error) {
	const op = "cache.session.Session"

	rec, err := s.rdb.HGetAll(ctx, s.keys.session(userID, sessionID)).Result()
	if err != nil {
		return nil, unavailable(op, err)
	}

	if len(rec) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	sess, err := parseSession(rec)
	if err != nil || sess.Expired(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return sess, nil
}

// SessionByAccessToken возвращает сессию, на которую указывает access-токен.
// ErrNotFound, если индекса нет, запись удалена или истекла.
func (s *SessionStore) SessionByAccessToken(ctx context.Context, accessToken string) (*models.Session, error) {
	const op = "cache.session.SessionByAccessToken"

	sess, err := s.lookup(ctx, s.rdb, s.keys.access(accessToken))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Expired(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return sess, nil
}

// InvalidateSession завершает сессию access-токена (logout): удаляет запись
// и индексы и заносит токен в чёрный список. Возвращает true, если была
// удалена запись сессии. Отсутствие индекса токена — не ошибка.
func (s *SessionStore) InvalidateSession(ctx context.Context, userID int64, accessToken string) (bool, error) {
	return s.invalidate(ctx, "cache.session.InvalidateSession", userID, accessToken, models.ReasonLogout)
}

// RevokeSession — то же, что InvalidateSession, но с причиной "revoked".
func (s *SessionStore) RevokeSession(ctx context.Context, userID int64, accessToken string) (bool, error) {
	return s.invalidate(ctx, "cache.session.RevokeSession", userID, accessToken, models.ReasonRevoked)
}

func (s *SessionStore) invalidate(ctx context.Context, op string, userID int64, accessToken, reason string) (bool, error) {
	accessKey := s.keys.access(accessToken)

	ref, err := s.rdb.HGetAll(ctx, accessKey).Result()
	if err != nil {
		return false, unavailable(op, err)
	}

	if len(ref) == 0 {
		return false, nil
	}

	uid, err := strconv.ParseInt(ref["uid"], 10, 64)
	if err != nil || uid != userID {
		return false, nil
	}

	sessKey := s.keys.session(uid, ref["sid"])
	rec, err := s.rdb.HGetAll(ctx, sessKey).Result()
	if err != nil {
		return false, unavailable(op, err)
	}

	sess, perr := parseSession(rec)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if perr == nil {
			s.remove(ctx, pipe, sess)
			s.ledger.add(ctx, pipe, accessToken, userID, reason, sess.ExpiresAt)
			return nil
		}

		// Записи сессии уже нет: убираем висячий индекс и всё равно отзываем токен.
		pipe.Del(ctx, accessKey, sessKey)
		pipe.SRem(ctx, s.keys.userSessions(uid), ref["sid"])
		s.ledger.add(ctx, pipe, accessToken, userID, reason, time.Time{})
		return nil
	})
	if err != nil {
		return false, unavailable(op, err)
	}

	return perr == nil, nil
}

// InvalidateAllSessions завершает все сессии пользователя одной транзакцией:
// записи и оба индекса каждой сессии. Токены в чёрный список не попадают:
// без индекса access-токен больше не находит сессию (ErrNotFound).
// Возвращает число завершённых сессий.
func (s *SessionStore) InvalidateAllSessions(ctx context.Context, userID int64) (int, error) {
	const op = "cache.session.InvalidateAllSessions"

	ids, sessions, err := s.userSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	userKey := s.keys.userSessions(userID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sess := range sessions {
			s.remove(ctx, pipe, sess)
		}

		// Id без записей (истёкших) тоже убираем; SREM, а не DEL,
		// чтобы не потерять сессию, созданную параллельным входом.
		stale := make([]any, 0, len(ids))
		for _, id := range ids {
			stale = append(stale, id)
		}
		pipe.SRem(ctx, userKey, stale...)
		return nil
	})
	if err != nil {
		return 0, unavailable(op, err)
	}

	return len(sessions), nil
}

// UpdateSession ротирует сессию по refresh-токену: старая сессия завершается
// (access-токен отзывается), создаётся новая с теми же метаданными клиента.
//
// Выполняется под WATCH на индексе старого refresh-токена: из нескольких
// параллельных ротаций одним токеном успешна ровно одна, остальные получают
// ErrNotFound.
func (s *SessionStore) UpdateSession(ctx context.Context, userID int64, oldRefresh, newAccess, newRefresh string) (string, error) {
	const op = "cache.session.UpdateSession"

	refreshKey := s.keys.refresh(oldRefresh)
	var newID string

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		old, err := s.lookup(ctx, tx, refreshKey)
		if err != nil {
			return err
		}

		if old.UserID != userID || old.Expired(s.now()) {
			return ErrNotFound
		}

		next := s.newSession(userID, newAccess, newRefresh, models.ClientInfo{
			IPAddress: old.IPAddress,
			UserAgent: old.UserAgent,
		})

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.remove(ctx, pipe, old)
			s.ledger.add(ctx, pipe, old.AccessToken, userID, models.ReasonRefresh, old.ExpiresAt)
			s.write(ctx, pipe, next)
			return nil
		})
		if err != nil {
			return err
		}

		newID = next.ID
		return nil
	}, refreshKey)

	switch {
	case err == nil:
		return newID, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, redis.TxFailedErr):
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrUnavailable):
		return "", fmt.Errorf("%s: %w", op, err)
	default:
		return "", unavailable(op, err)
	}
}

// UserSessions возвращает живые сессии пользователя, старые первыми.
// Id без записи (истёкшие) пропускаются.
func (s *SessionStore) UserSessions(ctx context.Context, userID int64) ([]*models.Session, error) {
	const op = "cache.session.UserSessions"

	_, sessions, err := s.userSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	live := sessions[:0]
	for _, sess := range sessions {
		if !sess.Expired(now) {
			live = append(live, sess)
		}
	}

	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })

	return live, nil
}

// CleanupExpiredSessions обходит записи сессий (SCAN) и удаляет те,
// у которых истёк expires_at, вместе с их индексами. Возвращает число удалённых.
// Обход постраничный и не блокирует остальные операции.
func (s *SessionStore) CleanupExpiredSessions(ctx context.Context) (int, error) {
	const op = "cache.session.CleanupExpiredSessions"

	removed := 0
	var cursor uint64

	for {
		if err := ctx.Err(); err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}

		batch, next, err := s.rdb.Scan(ctx, cursor, s.keys.sessionPattern(), scanBatch).Result()
		if err != nil {
			return removed, unavailable(op, err)
		}

		now := s.now()
		for _, key := range batch {
			rec, err := s.rdb.HGetAll(ctx, key).Result()
			if err != nil {
				return removed, unavailable(op, err)
			}

			if len(rec) == 0 {
				continue
			}

			sess, perr := parseSession(rec)
			if perr != nil {
				// Повреждённая запись: удаляем ключ целиком.
				if err := s.rdb.Del(ctx, key).Err(); err != nil {
					return removed, unavailable(op, err)
				}
				removed++
				continue
			}

			if !sess.Expired(now) {
				continue
			}

			_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				s.remove(ctx, pipe, sess)
				return nil
			})
			if err != nil {
				return removed, unavailable(op, err)
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (s *SessionStore) newSession(userID int64, accessToken, refreshToken string, client models.ClientInfo) *models.Session {
	now := s.now().UTC()

	return &models.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.accessTTL),
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
	}
}

// write ставит в пакет запись сессии, её индексы и членство в наборе пользователя.
func (s *SessionStore) write(ctx context.Context, pipe redis.Pipeliner, sess *models.Session) {
	sessKey := s.keys.session(sess.UserID, sess.ID)
	userKey := s.keys.userSessions(sess.UserID)
	accessKey := s.keys.access(sess.AccessToken)
	refreshKey := s.keys.refresh(sess.RefreshToken)
	ref := sessionRef(sess)

	pipe.HSet(ctx, sessKey, sessionFields(sess))
	pipe.Expire(ctx, sessKey, s.accessTTL)

	pipe.SAdd(ctx, userKey, sess.ID)
	pipe.Expire(ctx, userKey, s.accessTTL)

	pipe.HSet(ctx, accessKey, ref)
	pipe.Expire(ctx, accessKey, s.accessTTL)

	pipe.HSet(ctx, refreshKey, ref)
	pipe.Expire(ctx, refreshKey, s.refreshTTL)
}

// remove ставит в пакет удаление записи сессии, её индексов и членства.
func (s *SessionStore) remove(ctx context.Context, pipe redis.Pipeliner, sess *models.Session) {
	pipe.Del(ctx,
		s.keys.session(sess.UserID, sess.ID),
		s.keys.access(sess.AccessToken),
		s.keys.refresh(sess.RefreshToken),
	)
	pipe.SRem(ctx, s.keys.userSessions(sess.UserID), sess.ID)
}

// hashReader — общее у *redis.Client и *redis.Tx (внутри WATCH).
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// lookup читает индекс токена и запись сессии, на которую он указывает.
func (s *SessionStore) lookup(ctx context.Context, c hashReader, indexKey string) (*models.Session, error) {
	ref, err := c.HGetAll(ctx, indexKey).Result()
	if err != nil {
		return nil, unavailable("cache.session.lookup", err)
	}

	if len(ref) == 0 {
		return nil, ErrNotFound
	}

	uid, err := strconv.ParseInt(ref["uid"], 10, 64)
	if err != nil || ref["sid"] == "" {
		return nil, ErrNotFound
	}

	rec, err := c.HGetAll(ctx, s.keys.session(uid, ref["sid"])).Result()
	if err != nil {
		return nil, unavailable("cache.session.lookup", err)
	}

	if len(rec) == 0 {
		return nil, ErrNotFound
	}

	sess, err := parseSession(rec)
	if err != nil {
		return nil, ErrNotFound
	}

	return sess, nil
}

// userSessions возвращает все id из набора пользователя и найденные по ним записи.
func (s *SessionStore) userSessions(ctx context.Context, userID int64) ([]string, []*models.Session, error) {
	ids, err := s.rdb.SMembers(ctx, s.keys.userSessions(userID)).Result()
	if err != nil {
		return nil, nil, unavailable("cache.session.userSessions", err)
	}

	if len(ids) == 0 {
		return nil, nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.keys.session(userID, id))
		}
		return nil
	})
	if err != nil {
		return nil, nil, unavailable("cache.session.userSessions", err)
	}

	sessions := make([]*models.Session, 0, len(ids))
	for _, cmd := range cmds {
		rec := cmd.Val()
		if len(rec) == 0 {
			continue
		}

		sess, err := parseSession(rec)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	return ids, sessions, nil
}

func sessionRef(sess *models.Session) map[string]any {
	return map[string]any{
		"uid": strconv.FormatInt(sess.UserID, 10),
		"sid": sess.ID,
	}
}

func sessionFields(sess *models.Session) map[string]any {
	return map[string]any{
		"sid":     sess.ID,
		"uid":     strconv.FormatInt(sess.UserID, 10),
		"at":      sess.AccessToken,
		"rt":      sess.RefreshToken,
		"created": formatTime(sess.CreatedAt),
		"exp":     formatTime(sess.ExpiresAt),
		"ip":      sess.IPAddress,
		"ua":      sess.UserAgent,
	}
}

func parseSession(m map[string]string) (*models.Session, error) {
	uid, err := strconv.ParseInt(m["uid"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("uid: %w", err)
	}

	created, err := parseTime(m["created"])
	if err != nil {
		return nil, fmt.Errorf("created: %w", err)
	}

	exp, err := parseTime(m["exp"])
	if err != nil {
		return nil, fmt.Errorf("exp: %w", err)
	}

	if m["sid"] == "" || m["at"] == "" {
		return nil, errors.New("missing session id or token")
	}

	return &models.Session{
		ID:           m["sid"],
		UserID:       uid,
		AccessToken:  m["at"],
		RefreshToken: m["rt"],
		CreatedAt:    created,
		ExpiresAt:    exp,
		IPAddress:    m["ip"],
		UserAgent:    m["ua"],
	}, nil
}
