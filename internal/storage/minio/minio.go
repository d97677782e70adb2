// Package minio реализует storage.MediaStorage на базе MinIO/S3.
// Файлы загружаются сервером (PutObject) под ключом <prefix>/<uuid><ext>,
// наружу отдаётся публичный URL объекта.
package minio

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// MediaStorage — адаптер MinIO для медиафайлов.
type MediaStorage struct {
	client  *mclient.Client
	bucket  string
	baseURL string
}

// New создаёт клиент MinIO и проверяет наличие бакета (fail-fast).
// Схема endpoint определяет Secure; без схемы — http.
func New(ctx context.Context, cfg config.S3Config) (*MediaStorage, error) {
	const op = "storage/minio/New"

	endpoint := cfg.Endpoint
	secure := false
	scheme := "http"

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
		scheme = u.Scheme
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = scheme + "://" + endpoint + "/" + cfg.Bucket
	}

	return &MediaStorage{client: client, bucket: cfg.Bucket, baseURL: base}, nil
}

// Upload загружает файл и возвращает ключ и публичный URL.
func (s *MediaStorage) Upload(ctx context.Context, prefix string, file models.MediaFile) (models.StoredObject, error) {
	const op = "storage/minio/Upload"

	if file.Body == nil {
		return models.StoredObject{}, fmt.Errorf("%s: empty body", op)
	}

	key := ObjectKey(prefix, file)

	size := file.Size
	if size <= 0 {
		size = -1
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, file.Body, size, mclient.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return models.StoredObject{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.StoredObject{Key: key, URL: s.baseURL + "/" + key}, nil
}

// Remove удаляет объект; NoSuchKey не считается ошибкой.
func (s *MediaStorage) Remove(ctx context.Context, key string) error {
	const op = "storage/minio/Remove"

	if key == "" {
		return nil
	}

	err := s.client.RemoveObject(ctx, s.bucket, key, mclient.RemoveObjectOptions{})
	if err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == 404 {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Exists проверяет наличие объекта (StatObject).
func (s *MediaStorage) Exists(ctx context.Context, key string) (bool, error) {
	const op = "storage/minio/Exists"

	_, err := s.client.StatObject(ctx, s.bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// Ping используется readiness-пробой.
func (s *MediaStorage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("bucket is gone")
	}
	return nil
}

// ObjectKey строит ключ <prefix>/<uuid><ext>; расширение берётся из имени файла,
// иначе подбирается по Content-Type.
func ObjectKey(prefix string, file models.MediaFile) string {
	ext := strings.ToLower(path.Ext(file.Name))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(file.ContentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return path.Join(prefix, uuid.NewString()+ext)
}

var _ storage.MediaStorage = (*MediaStorage)(nil)
