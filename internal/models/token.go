package models

// AuthResult — пара токенов, выдаваемая при входе и обновлении.
//
// Описание:
//   - AccessToken — JWT для авторизации запросов (kind=access);
//   - RefreshToken — JWT для выпуска новой пары (kind=refresh), одноразовый;
//   - ExpiresIn — время жизни access-токена в секундах.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       int64  `json:"user_id"`
	SessionID    string `json:"session_id"`
}

// TokenTypeBearer — тип токена в ответах API.
const TokenTypeBearer = "bearer"
