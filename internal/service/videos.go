package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// Videos — публикация, выборка и изменение видео.
type Videos struct {
	videos   storage.VideoStorage
	accounts storage.AccountStorage
	media    storage.MediaStorage
	mediaCfg config.MediaConfig
	limits   config.LimitsConfig
}

// NewVideos создаёт Videos.
func NewVideos(
	videos storage.VideoStorage,
	accounts storage.AccountStorage,
	media storage.MediaStorage,
	mediaCfg config.MediaConfig,
	limits config.LimitsConfig,
) *Videos {
	return &Videos{
		videos:   videos,
		accounts: accounts,
		media:    media,
		mediaCfg: mediaCfg,
		limits:   limits,
	}
}

// PublishInput — данные формы публикации.
type PublishInput struct {
	Title       string
	Description string
	// Duration — длительность в секундах, сообщается клиентом.
	Duration  float64
	Video     *models.MediaFile
	Thumbnail *models.MediaFile
}

// Publish загружает видео и превью и создаёт опубликованную запись.
func (s *Videos) Publish(ctx context.Context, owner *models.Account, in PublishInput) (*models.Video, error) {
	const op = "service.videos.Publish"

	if owner == nil || owner.ID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	title, description := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%s: %w: title and description are required", op, ErrValidation)
	}

	if in.Duration < 0 || math.IsNaN(in.Duration) || math.IsInf(in.Duration, 0) {
		return nil, fmt.Errorf("%s: %w: invalid duration", op, ErrValidation)
	}

	if err := videoRules("video", s.mediaCfg).check(in.Video); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := imageRules("thumbnail", s.mediaCfg).check(in.Thumbnail); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	videoObj, err := s.media.Upload(ctx, "videos/"+owner.ID.String(), *in.Video)
	if err != nil {
		return nil, fmt.Errorf("%s: upload video: %w", op, err)
	}

	thumbObj, err := s.media.Upload(ctx, "thumbnails/"+owner.ID.String(), *in.Thumbnail)
	if err != nil {
		removeQuietly(ctx, s.media, videoObj.Key)
		return nil, fmt.Errorf("%s: upload thumbnail: %w", op, err)
	}

	v, err := s.videos.CreateVideo(ctx, models.Video{
		OwnerID:      owner.ID,
		Title:        title,
		Description:  description,
		VideoURL:     videoObj.URL,
		VideoKey:     videoObj.Key,
		ThumbnailURL: thumbObj.URL,
		ThumbnailKey: thumbObj.Key,
		Duration:     in.Duration,
		Published:    true,
	})
	if err != nil {
		removeQuietly(ctx, s.media, videoObj.Key)
		removeQuietly(ctx, s.media, thumbObj.Key)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("video_published", "op", op, "video_id", v.ID, "owner_id", owner.ID)

	return v, nil
}

// VideoByID возвращает видео. Флаг публикации на чтение не влияет.
func (s *Videos) VideoByID(ctx context.Context, id string) (*models.Video, error) {
	const op = "service.videos.VideoByID"

	v, err := s.videos.VideoByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapVideoErr(err))
	}

	return v, nil
}

// ListInput — параметры запроса списка в виде, пришедшем от клиента.
type ListInput struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	UserID   string
}

// List возвращает страницу видео с фильтрами и сортировкой.
//
// Правила:
//   - Page 0 трактуется как 1, отрицательная — ошибка;
//   - Limit 0 — значение по умолчанию, больше максимума — максимум;
//   - SortBy по умолчанию created_at, SortType — desc;
//   - UserID должен указывать на существующий аккаунт.
func (s *Videos) List(ctx context.Context, in ListInput) (*models.VideoPage, error) {
	const op = "service.videos.List"

	f := models.VideoFilter{
		Query:    strings.TrimSpace(in.Query),
		Page:     in.Page,
		Limit:    in.Limit,
		SortBy:   strings.ToLower(strings.TrimSpace(in.SortBy)),
		SortDesc: true,
	}

	switch {
	case f.Page < 0:
		return nil, fmt.Errorf("%s: %w: page must be >= 1", op, ErrValidation)
	case f.Page == 0:
		f.Page = 1
	}

	switch {
	case f.Limit < 0:
		return nil, fmt.Errorf("%s: %w: limit must be >= 1", op, ErrValidation)
	case f.Limit == 0:
		f.Limit = s.limits.Default
	case f.Limit > s.limits.Max:
		f.Limit = s.limits.Max
	}

	switch f.SortBy {
	case "":
		f.SortBy = models.SortByCreatedAt
	case models.SortByCreatedAt, models.SortByViews, models.SortByDuration, models.SortByTitle:
	default:
		return nil, fmt.Errorf("%s: %w: unsupported sortBy %q", op, ErrValidation, in.SortBy)
	}

	switch strings.ToLower(strings.TrimSpace(in.SortType)) {
	case "", "desc":
	case "asc":
		f.SortDesc = false
	default:
		return nil, fmt.Errorf("%s: %w: sortType must be asc or desc", op, ErrValidation)
	}

	if uid := strings.TrimSpace(in.UserID); uid != "" {
		ownerID, err := uuid.Parse(uid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: invalid userId", op, ErrValidation)
		}

		if _, err := s.accounts.ProfileByID(ctx, ownerID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w: user not found", op, ErrNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		f.OwnerID = ownerID
	}

	page, err := s.videos.ListVideos(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

// UpdateInput — новые значения полей видео. Thumbnail опционален.
type UpdateInput struct {
	Title       string
	Description string
	Thumbnail   *models.MediaFile
}

// Update меняет заголовок, описание и, при наличии, превью. Только для владельца.
func (s *Videos) Update(ctx context.Context, subject *models.Account, id string, in UpdateInput) (*models.Video, error) {
	const op = "service.videos.Update"

	v, err := s.owned(ctx, subject, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	title, description := strings.TrimSpace(in.Title), strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%s: %w: title and description are required", op, ErrValidation)
	}

	upd := models.VideoUpdate{Title: title, Description: description}

	if in.Thumbnail != nil {
		if err := imageRules("thumbnail", s.mediaCfg).check(in.Thumbnail); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		obj, err := s.media.Upload(ctx, "thumbnails/"+subject.ID.String(), *in.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("%s: upload thumbnail: %w", op, err)
		}
		upd.Thumbnail = &obj
	}

	updated, err := s.videos.UpdateVideo(ctx, v.ID, upd)
	if err != nil {
		if upd.Thumbnail != nil {
			removeQuietly(ctx, s.media, upd.Thumbnail.Key)
		}
		return nil, fmt.Errorf("%s: %w", op, mapVideoErr(err))
	}

	if upd.Thumbnail != nil && v.ThumbnailKey != upd.Thumbnail.Key {
		removeQuietly(ctx, s.media, v.ThumbnailKey)
	}

	return updated, nil
}

// Delete удаляет видео и его файлы. Только для владельца.
func (s *Videos) Delete(ctx context.Context, subject *models.Account, id string) error {
	const op = "service.videos.Delete"

	v, err := s.owned(ctx, subject, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.videos.DeleteVideo(ctx, v.ID); err != nil {
		return fmt.Errorf("%s: %w", op, mapVideoErr(err))
	}

	removeQuietly(ctx, s.media, v.VideoKey)
	removeQuietly(ctx, s.media, v.ThumbnailKey)

	logctx.From(ctx).Info("video_deleted", "op", op, "video_id", v.ID, "owner_id", v.OwnerID)

	return nil
}

// TogglePublish инвертирует флаг публикации. Только для владельца.
func (s *Videos) TogglePublish(ctx context.Context, subject *models.Account, id string) (*models.Video, error) {
	const op = "service.videos.TogglePublish"

	v, err := s.owned(ctx, subject, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	toggled, err := s.videos.TogglePublished(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapVideoErr(err))
	}

	return toggled, nil
}

// owned загружает видео и проверяет, что subject — его владелец.
func (s *Videos) owned(ctx context.Context, subject *models.Account, id string) (*models.Video, error) {
	v, err := s.videos.VideoByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, mapVideoErr(err)
	}

	if err := AuthorizeMutation(subject, v); err != nil {
		var subjectID uuid.UUID
		if subject != nil {
			subjectID = subject.ID
		}
		logctx.From(ctx).Warn("video_mutation_denied", "video_id", v.ID, "subject_id", subjectID)
		return nil, err
	}

	return v, nil
}

func mapVideoErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidID):
		return fmt.Errorf("%w: invalid video id", ErrValidation)
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: video not found", ErrNotFound)
	default:
		return err
	}
}
