package models

import (
	"time"

	"github.com/google/uuid"
)

// CredentialKind — назначение токена.
type CredentialKind string

const (
	KindAccess  CredentialKind = "access"
	KindRefresh CredentialKind = "refresh"
)

// Credential — подписанный токен и его метаданные.
// Токены неизменяемы: ротация выпускает новый.
type Credential struct {
	Token     string
	Kind      CredentialKind
	SubjectID uuid.UUID
	// ID — уникальный jti; различает токены, выпущенные в одну секунду.
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair — пара токенов, выдаваемая при входе и обновлении сессии.
type TokenPair struct {
	Access  Credential
	Refresh Credential
}
