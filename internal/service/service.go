// service содержит бизнес-логику video-hub: жизненный цикл сессии
// (вход, обновление, выход), проверку access-токена на входе запроса,
// проверку владельца перед изменением видео, а также операции над
// аккаунтами и видео.
//
// Основные аспекты:
//   - Компоненты не хранят состояние запроса; экземпляры безопасны для
//     конкурентного использования, если безопасны переданные хранилища.
//   - Единственная точка сериализации конкурентных обновлений сессии —
//     условная запись refresh-хэша в хранилище (SwapRefreshToken).
//   - Ошибки — значения из списка ниже, обёрнутые через "%s: %w" с op;
//     транспорт маппит их на HTTP через errors.Is.
package service

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/video-hub/internal/storage AccountStorage,VideoStorage,MediaStorage
//go:generate mockgen -destination=../../mocks/mock_cache.go -package=mocks github.com/pribylovaa/video-hub/internal/cache LoginLimiter

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/token"
)

var (
	// ErrValidation — некорректные входные данные. HTTP 400.
	ErrValidation = errors.New("invalid argument")

	// ErrAuthentication — неверная пара логин/пароль или аккаунт не найден.
	// Сообщение одинаковое для обоих случаев. HTTP 401.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrUnauthenticated — access-токен отсутствует, битый или просрочен. HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAccountNotFound — токен валиден, но аккаунта уже нет. HTTP 401.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredential — refresh-токен не разбирается или подпись неверна. HTTP 400.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrCredentialExpired — срок refresh-токена истёк. HTTP 400.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrStaleCredential — предъявлен refresh-токен, который уже заменён. HTTP 400.
	ErrStaleCredential = errors.New("stale credential")

	// ErrSessionRevoked — активной сессии нет (после выхода). HTTP 400.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrPermissionDenied — изменение чужого ресурса. HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound — ресурс не найден. HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — username или e-mail заняты. HTTP 409.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTooManyAttempts — превышен лимит неудачных входов. HTTP 429.
	ErrTooManyAttempts = errors.New("too many attempts")

	// ErrInternal — сбой подписи или хранилища; детали только в логах. HTTP 500.
	ErrInternal = errors.New("internal error")
)

// TokenCodec — выпуск и проверка токенов (реализация: token.Codec).
type TokenCodec interface {
	IssueAccess(subjectID uuid.UUID) (models.Credential, error)
	IssueRefresh(subjectID uuid.UUID) (models.Credential, error)
	Verify(raw string, kind models.CredentialKind) (token.Claims, error)
}

var _ TokenCodec = (*token.Codec)(nil)

// hashToken — sha256(base64url) от сырого токена; в хранилище лежит только он.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// sameHash сравнивает хэши за постоянное время.
func sameHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
