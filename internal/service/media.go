package service

import (
	"context"
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// mediaRules — ограничения на загружаемые файлы одного вида.
type mediaRules struct {
	field    string
	maxBytes int64
	types    []string
}

func imageRules(field string, cfg config.MediaConfig) mediaRules {
	return mediaRules{field: field, maxBytes: cfg.MaxImageBytes, types: cfg.ImageContentTypes}
}

func videoRules(field string, cfg config.MediaConfig) mediaRules {
	return mediaRules{field: field, maxBytes: cfg.MaxVideoBytes, types: cfg.VideoContentTypes}
}

// check проверяет наличие, размер и MIME-тип файла.
// Size < 0 означает «неизвестен», тогда лимит размера не проверяется.
func (r mediaRules) check(f *models.MediaFile) error {
	if f == nil || f.Body == nil || f.Size == 0 {
		return fmt.Errorf("%w: %s file is required", ErrValidation, r.field)
	}

	if r.maxBytes > 0 && f.Size > r.maxBytes {
		return fmt.Errorf("%w: %s file is too large", ErrValidation, r.field)
	}

	ct, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || !slices.Contains(r.types, strings.ToLower(ct)) {
		return fmt.Errorf("%w: %s has unsupported content type", ErrValidation, r.field)
	}

	return nil
}

// removeQuietly удаляет объект, ошибки только логируются.
func removeQuietly(ctx context.Context, media storage.MediaStorage, key string) {
	if key == "" {
		return
	}

	if err := media.Remove(ctx, key); err != nil {
		logctx.From(ctx).Warn("media_remove_failed", "key", key, "err", err)
	}
}
