package models

import "time"

// User — учётная запись из каталога пользователей.
// PasswordHash никогда не покидает сервис.
type User struct {
	ID              int64
	Email           string
	Username        string
	FullName        string
	PasswordHash    string
	IsActive        bool
	IsVerified      bool
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserView — публичное представление пользователя вместе со сведениями
// о сессии, через которую он обратился (ответ на /auth/me).
type UserView struct {
	ID              int64       `json:"id"`
	Email           string      `json:"email"`
	Username        string      `json:"username"`
	FullName        string      `json:"full_name,omitempty"`
	IsActive        bool        `json:"is_active"`
	IsVerified      bool        `json:"is_verified"`
	ProfileImageURL string      `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Session         SessionInfo `json:"session_info"`
}

// NewUserView собирает представление пользователя без хэша пароля.
func NewUserView(u *User, s *Session) *UserView {
	v := &UserView{
		ID:              u.ID,
		Email:           u.Email,
		Username:        u.Username,
		FullName:        u.FullName,
		IsActive:        u.IsActive,
		IsVerified:      u.IsVerified,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
	}
	if s != nil {
		v.Session = s.Info()
	}

	return v
}
