package models

import (
	"time"

	"github.com/google/uuid"
)

// Video — опубликованное пользователем видео (MongoDB).
// OwnerID задаётся при создании и больше не меняется.
type Video struct {
	ID           string
	OwnerID      uuid.UUID
	Title        string
	Description  string
	VideoURL     string
	VideoKey     string
	ThumbnailURL string
	ThumbnailKey string
	// Duration — длительность в секундах.
	Duration  float64
	Views     int64
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Поля сортировки списка видео.
const (
	SortByCreatedAt = "created_at"
	SortByViews     = "views"
	SortByDuration  = "duration"
	SortByTitle     = "title"
)

// VideoFilter — параметры выборки списка видео.
// OwnerID == uuid.Nil означает «все владельцы».
type VideoFilter struct {
	Query    string
	OwnerID  uuid.UUID
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// VideoPage — страница результатов.
type VideoPage struct {
	Items []Video
	Total int64
	Page  int
	Limit int
}

// VideoUpdate — изменяемые владельцем поля. Thumbnail == nil оставляет превью прежним.
type VideoUpdate struct {
	Title       string
	Description string
	Thumbnail   *StoredObject
}
