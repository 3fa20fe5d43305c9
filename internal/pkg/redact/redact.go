// redact маскирует чувствительные данные для логов: e-mail, токены, пароли.
// Маска сохраняет ровно столько контекста, сколько нужно для корреляции записей.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - ровно один '@', иначе "***";
//   - от локальной части остаются первые два символа (по рунам) + "***",
//     при длине ≤ 2 — только "***";
//   - домен сохраняется как есть.
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	if lr := []rune(local); len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token заменяет токен коротким отпечатком: по нему можно сопоставить
// записи лога об одном и том же токене, не раскрывая сам токен.
func Token(tok string) string {
	if tok == "" {
		return "[EMPTY_TOKEN]"
	}

	sum := sha256.Sum256([]byte(tok))
	return "tok:" + hex.EncodeToString(sum[:4])
}
