// Package memory держит аккаунты, видео и медиа в памяти процесса.
// Безопасен для конкурентного использования; предназначен для локального
// запуска без внешних зависимостей и для тестов.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// Store — in-memory реализация AccountStorage и VideoStorage.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	videos   map[string]models.Video
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]models.Account),
		videos:   make(map[string]models.Video),
		now:      time.Now,
	}
}

// Ping всегда успешен.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) timestamp() time.Time { return s.now().UTC() }

// CreateAccount сохраняет аккаунт, проверяя уникальность username/email.
func (s *Store) CreateAccount(_ context.Context, a *models.Account) error {
	const op = "storage/memory/CreateAccount"

	a.Username = strings.ToLower(a.Username)
	a.Email = strings.ToLower(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	for _, other := range s.accounts {
		if other.Username == a.Username || other.Email == a.Email {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.timestamp()
	}
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = *a

	return nil
}

// AccountByID возвращает копию аккаунта.
func (s *Store) AccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	a, ok := s.accounts[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("storage/memory/AccountByID: %w", storage.ErrNotFound)
	}

	return &a, nil
}

// ProfileByID возвращает копию без секретов.
func (s *Store) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := s.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := a.Public()
	return &p, nil
}

// AccountByLogin ищет по username или email.
func (s *Store) AccountByLogin(_ context.Context, login string) (*models.Account, error) {
	l := strings.ToLower(strings.TrimSpace(login))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Username == l || a.Email == l {
			return &a, nil
		}
	}

	return nil, fmt.Errorf("storage/memory/AccountByLogin: %w", storage.ErrNotFound)
}

// SetRefreshToken безусловно записывает хэш.
func (s *Store) SetRefreshToken(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate("storage/memory/SetRefreshToken", id, func(a *models.Account) {
		a.RefreshTokenHash = hash
	})
}

// SwapRefreshToken — CAS под мьютексом.
func (s *Store) SwapRefreshToken(_ context.Context, id uuid.UUID, expected, next string) (bool, error) {
	if expected == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.RefreshTokenHash != expected {
		return false, nil
	}

	a.RefreshTokenHash = next
	a.UpdatedAt = s.timestamp()
	s.accounts[id] = a

	return true, nil
}

// ClearRefreshToken снимает хэш.
func (s *Store) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	return s.mutate("storage/memory/ClearRefreshToken", id, func(a *models.Account) {
		a.RefreshTokenHash = ""
	})
}

// UpdatePassword заменяет хэш пароля.
func (s *Store) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	return s.mutate("storage/memory/UpdatePassword", id, func(a *models.Account) {
		a.PasswordHash = hash
	})
}

// UpdateProfile меняет ФИО и e-mail.
func (s *Store) UpdateProfile(_ context.Context, id uuid.UUID, fullName, email string) (*models.Account, error) {
	const op = "storage/memory/UpdateProfile"

	email = strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	for otherID, other := range s.accounts {
		if otherID != id && other.Email == email {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
	}

	a.FullName = fullName
	a.Email = email
	a.UpdatedAt = s.timestamp()
	s.accounts[id] = a

	p := a.Public()
	return &p, nil
}

// UpdateAvatar записывает аватар и возвращает прежний ключ.
func (s *Store) UpdateAvatar(_ context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	var prev string
	err := s.mutate("storage/memory/UpdateAvatar", id, func(a *models.Account) {
		prev = a.AvatarKey
		a.AvatarKey, a.AvatarURL = obj.Key, obj.URL
	})
	return prev, err
}

// UpdateCover записывает обложку и возвращает прежний ключ.
func (s *Store) UpdateCover(_ context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	var prev string
	err := s.mutate("storage/memory/UpdateCover", id, func(a *models.Account) {
		prev = a.CoverKey
		a.CoverKey, a.CoverURL = obj.Key, obj.URL
	})
	return prev, err
}

func (s *Store) mutate(op string, id uuid.UUID, fn func(a *models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	fn(&a)
	a.UpdatedAt = s.timestamp()
	s.accounts[id] = a

	return nil
}

// CreateVideo сохраняет видео с новым ObjectID.
func (s *Store) CreateVideo(_ context.Context, v models.Video) (*models.Video, error) {
	now := s.timestamp()
	v.ID = primitive.NewObjectID().Hex()
	v.CreatedAt = now
	v.UpdatedAt = now

	s.mu.Lock()
	s.videos[v.ID] = v
	s.mu.Unlock()

	return &v, nil
}

// VideoByID возвращает копию видео.
func (s *Store) VideoByID(_ context.Context, id string) (*models.Video, error) {
	const op = "storage/memory/VideoByID"

	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidID)
	}

	s.mu.RLock()
	v, ok := s.videos[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &v, nil
}

// ListVideos фильтрует, сортирует и режет страницу.
// Поиск — регистронезависимое вхождение любого слова запроса в title/description.
func (s *Store) ListVideos(_ context.Context, f models.VideoFilter) (*models.VideoPage, error) {
	words := strings.Fields(strings.ToLower(f.Query))

	s.mu.RLock()
	items := make([]models.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if f.OwnerID != uuid.Nil && v.OwnerID != f.OwnerID {
			continue
		}
		if len(words) > 0 && !matchesAny(v, words) {
			continue
		}
		items = append(items, v)
	}
	s.mu.RUnlock()

	less := lessBy(f.SortBy)
	sort.SliceStable(items, func(i, j int) bool {
		if f.SortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &models.VideoPage{
		Items: append([]models.Video(nil), items[start:end]...),
		Total: int64(total),
		Page:  page,
		Limit: limit,
	}, nil
}

func matchesAny(v models.Video, words []string) bool {
	text := strings.ToLower(v.Title + " " + v.Description)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// lessBy сравнивает по полю сортировки; при равенстве — по ID.
func lessBy(field string) func(a, b models.Video) bool {
	return func(a, b models.Video) bool {
		switch field {
		case models.SortByViews:
			if a.Views != b.Views {
				return a.Views < b.Views
			}
		case models.SortByDuration:
			if a.Duration != b.Duration {
				return a.Duration < b.Duration
			}
		case models.SortByTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
}

// UpdateVideo меняет заголовок, описание и, опционально, превью.
func (s *Store) UpdateVideo(_ context.Context, id string, upd models.VideoUpdate) (*models.Video, error) {
	return s.mutateVideo("storage/memory/UpdateVideo", id, func(v *models.Video) {
		v.Title = upd.Title
		v.Description = upd.Description
		if upd.Thumbnail != nil {
			v.ThumbnailKey = upd.Thumbnail.Key
			v.ThumbnailURL = upd.Thumbnail.URL
		}
	})
}

// DeleteVideo удаляет видео.
func (s *Store) DeleteVideo(_ context.Context, id string) error {
	const op = "storage/memory/DeleteVideo"

	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.videos, id)

	return nil
}

// TogglePublished инвертирует флаг под мьютексом.
func (s *Store) TogglePublished(_ context.Context, id string) (*models.Video, error) {
	return s.mutateVideo("storage/memory/TogglePublished", id, func(v *models.Video) {
		v.Published = !v.Published
	})
}

func (s *Store) mutateVideo(op, id string, fn func(v *models.Video)) (*models.Video, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	fn(&v)
	v.UpdatedAt = s.timestamp()
	s.videos[id] = v

	return &v, nil
}

// Media — in-memory объектное хранилище.
type Media struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMedia создаёт хранилище; URL объектов строятся как baseURL/key.
func NewMedia(baseURL string) *Media {
	return &Media{objects: make(map[string][]byte), baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload читает тело целиком и сохраняет под ключом <prefix>/<uuid>.
func (m *Media) Upload(_ context.Context, prefix string, file models.MediaFile) (models.StoredObject, error) {
	const op = "storage/memory/Upload"

	if file.Body == nil {
		return models.StoredObject{}, fmt.Errorf("%s: empty body", op)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file.Body); err != nil {
		return models.StoredObject{}, fmt.Errorf("%s: %w", op, err)
	}

	key := prefix + "/" + uuid.NewString()

	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()

	return models.StoredObject{Key: key, URL: m.baseURL + "/" + key}, nil
}

// Remove удаляет объект; отсутствие не ошибка.
func (m *Media) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Has сообщает, хранится ли объект.
func (m *Media) Has(key string) bool {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok
}

// Len — число хранимых объектов.
func (m *Media) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var (
	_ storage.AccountStorage = (*Store)(nil)
	_ storage.VideoStorage   = (*Store)(nil)
	_ storage.MediaStorage   = (*Media)(nil)
)
