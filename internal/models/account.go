// Package models содержит доменные сущности video-hub.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account — учётная запись пользователя.
// Важно:
//   - Username и Email хранятся в нижнем регистре и уникальны;
//   - PasswordHash — bcrypt-хэш, наружу не отдаётся;
//   - RefreshTokenHash — sha256(base64url) текущего refresh-токена;
//     пустая строка означает отсутствие активной сессии;
//   - AvatarKey/CoverKey — ключи объектов в S3 (для удаления при замене).
type Account struct {
	ID               uuid.UUID
	Username         string
	Email            string
	FullName         string
	AvatarURL        string
	AvatarKey        string
	CoverURL         string
	CoverKey         string
	PasswordHash     string
	RefreshTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Public возвращает копию без секретов (пароль и refresh-хэш).
func (a Account) Public() Account {
	a.PasswordHash = ""
	a.RefreshTokenHash = ""
	return a
}
