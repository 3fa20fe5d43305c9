package models

import "time"

// ClientInfo — метаданные клиента, зафиксированные при входе.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Session — запись активной сессии в хранилище сессий.
//
// Инварианты:
//   - ExpiresAt = CreatedAt + TTL access-токена;
//   - AccessToken и RefreshToken ссылаются на эту сессию, пока она жива.
type Session struct {
	ID           string
	UserID       int64
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	IPAddress    string
	UserAgent    string
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Info возвращает представление сессии без токенов.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
	}
}

// SessionInfo — сведения о сессии, безопасные для выдачи клиенту.
type SessionInfo struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	IsCurrent bool      `json:"is_current"`
}

// BlacklistEntry — запись об отозванном access-токене.
// Живёт не дольше исходного срока действия токена.
type BlacklistEntry struct {
	UserID        int64
	Reason        string
	BlacklistedAt time.Time
	ExpiresAt     time.Time
}

// Причины завершения сессии: поле reason записи чёрного списка и лейбл метрик.
// revoke_all в чёрный список не пишется.
const (
	ReasonLogout    = "logout"
	ReasonRevoked   = "revoked"
	ReasonRefresh   = "refresh"
	ReasonRevokeAll = "revoke_all"
)
