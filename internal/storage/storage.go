// Package storage описывает контракты хранилищ video-hub.
// Реализации: mongo (аккаунты и видео), postgres (аккаунты), minio (медиа),
// memory (всё в памяти процесса, для локального запуска и тестов).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidID — идентификатор не разбирается (битый ObjectID).
	ErrInvalidID = errors.New("invalid id")
)

// AccountStorage — хранилище аккаунтов и текущего refresh-хэша.
// Каждая запись атомарна на уровне одной учётной записи.
type AccountStorage interface {
	// CreateAccount сохраняет новый аккаунт. Дубликат username/email — ErrAlreadyExists.
	CreateAccount(ctx context.Context, account *models.Account) error
	// AccountByID возвращает аккаунт целиком (с секретами).
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// ProfileByID возвращает аккаунт без PasswordHash и RefreshTokenHash.
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// AccountByLogin ищет по username или email (без учёта регистра).
	AccountByLogin(ctx context.Context, login string) (*models.Account, error)

	// SetRefreshToken безусловно записывает хэш текущего refresh-токена (вход).
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error
	// SwapRefreshToken заменяет хэш только если текущий равен expected (CAS).
	// false без ошибки означает, что условие не выполнилось.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
	// ClearRefreshToken снимает хэш; идемпотентен.
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error

	// UpdatePassword заменяет bcrypt-хэш пароля.
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	// UpdateProfile меняет ФИО и e-mail. Занятый e-mail — ErrAlreadyExists.
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*models.Account, error)
	// UpdateAvatar записывает новый аватар и возвращает ключ предыдущего.
	UpdateAvatar(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error)
	// UpdateCover записывает новую обложку и возвращает ключ предыдущей.
	UpdateCover(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error)
}

// VideoStorage — хранилище видео.
type VideoStorage interface {
	// CreateVideo сохраняет видео; ID и временные метки выставляет хранилище.
	CreateVideo(ctx context.Context, video models.Video) (*models.Video, error)
	// VideoByID — ErrInvalidID для битого id, ErrNotFound если нет.
	VideoByID(ctx context.Context, id string) (*models.Video, error)
	// ListVideos возвращает страницу по фильтру и общее число совпадений.
	ListVideos(ctx context.Context, f models.VideoFilter) (*models.VideoPage, error)
	// UpdateVideo меняет заголовок, описание и, опционально, превью.
	UpdateVideo(ctx context.Context, id string, upd models.VideoUpdate) (*models.Video, error)
	// DeleteVideo удаляет документ.
	DeleteVideo(ctx context.Context, id string) error
	// TogglePublished атомарно инвертирует флаг публикации.
	TogglePublished(ctx context.Context, id string) (*models.Video, error)
}

// MediaStorage — объектное хранилище загруженных файлов.
type MediaStorage interface {
	// Upload кладёт файл под prefix и возвращает ключ и публичный URL.
	Upload(ctx context.Context, prefix string, file models.MediaFile) (models.StoredObject, error)
	// Remove удаляет объект; отсутствие объекта ошибкой не считается.
	Remove(ctx context.Context, key string) error
}
