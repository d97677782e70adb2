package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

type videoDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID      string             `bson:"owner_id"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	VideoURL     string             `bson:"video_url"`
	VideoKey     string             `bson:"video_key"`
	ThumbnailURL string             `bson:"thumbnail_url"`
	ThumbnailKey string             `bson:"thumbnail_key"`
	Duration     float64            `bson:"duration"`
	Views        int64              `bson:"views"`
	Published    bool               `bson:"published"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d videoDoc) toModel() (*models.Video, error) {
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("bad owner id %q: %w", d.OwnerID, err)
	}

	return &models.Video{
		ID:           d.ID.Hex(),
		OwnerID:      owner,
		Title:        d.Title,
		Description:  d.Description,
		VideoURL:     d.VideoURL,
		VideoKey:     d.VideoKey,
		ThumbnailURL: d.ThumbnailURL,
		ThumbnailKey: d.ThumbnailKey,
		Duration:     d.Duration,
		Views:        d.Views,
		Published:    d.Published,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// sortFields — допустимые поля сортировки и их имена в документе.
var sortFields = map[string]string{
	models.SortByCreatedAt: "created_at",
	models.SortByViews:     "views",
	models.SortByDuration:  "duration",
	models.SortByTitle:     "title",
}

// CreateVideo вставляет документ; ObjectID генерирует драйвер.
func (m *Mongo) CreateVideo(ctx context.Context, v models.Video) (*models.Video, error) {
	const op = "storage/mongo/CreateVideo"

	now := m.timestamp()
	doc := videoDoc{
		OwnerID:      v.OwnerID.String(),
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		VideoKey:     v.VideoKey,
		ThumbnailURL: v.ThumbnailURL,
		ThumbnailKey: v.ThumbnailKey,
		Duration:     v.Duration,
		Views:        v.Views,
		Published:    v.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := m.videos.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}
	doc.ID = oid

	return doc.toModel()
}

// VideoByID находит видео по hex ObjectID.
func (m *Mongo) VideoByID(ctx context.Context, id string) (*models.Video, error) {
	const op = "storage/mongo/VideoByID"

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var doc videoDoc
	if err := m.videos.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

// ListVideos — постраничная выдача: полнотекстовый поиск, фильтр по владельцу,
// сортировка по допустимому полю с _id как вторичным ключом для стабильности.
func (m *Mongo) ListVideos(ctx context.Context, f models.VideoFilter) (*models.VideoPage, error) {
	const op = "storage/mongo/ListVideos"

	filter := bson.D{}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q}}})
	}
	if f.OwnerID != uuid.Nil {
		filter = append(filter, bson.E{Key: "owner_id", Value: f.OwnerID.String()})
	}

	field, ok := sortFields[f.SortBy]
	if !ok {
		field = "created_at"
	}
	dir := 1
	if f.SortDesc {
		dir = -1
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	total, err := m.videos.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := m.videos.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	items := make([]models.Video, 0, limit)
	for cur.Next(ctx) {
		var doc videoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		v, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *v)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return &models.VideoPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// UpdateVideo меняет заголовок/описание и, если задано, превью.
func (m *Mongo) UpdateVideo(ctx context.Context, id string, upd models.VideoUpdate) (*models.Video, error) {
	const op = "storage/mongo/UpdateVideo"

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	set := bson.D{
		{Key: "title", Value: upd.Title},
		{Key: "description", Value: upd.Description},
		{Key: "updated_at", Value: m.timestamp()},
	}
	if upd.Thumbnail != nil {
		set = append(set,
			bson.E{Key: "thumbnail_url", Value: upd.Thumbnail.URL},
			bson.E{Key: "thumbnail_key", Value: upd.Thumbnail.Key},
		)
	}

	return m.findAndUpdateVideo(ctx, op, oid, bson.D{{Key: "$set", Value: set}})
}

// DeleteVideo удаляет документ по id.
func (m *Mongo) DeleteVideo(ctx context.Context, id string) error {
	const op = "storage/mongo/DeleteVideo"

	oid, err := parseObjectID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := m.videos.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// TogglePublished инвертирует published одним update-пайплайном (MongoDB 4.2+),
// без чтения-изменения-записи на стороне приложения.
func (m *Mongo) TogglePublished(ctx context.Context, id string) (*models.Video, error) {
	const op = "storage/mongo/TogglePublished"

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "published", Value: bson.D{{Key: "$not", Value: bson.A{"$published"}}}},
			{Key: "updated_at", Value: m.timestamp()},
		}}},
	}

	return m.findAndUpdateVideo(ctx, op, oid, pipeline)
}

func (m *Mongo) findAndUpdateVideo(ctx context.Context, op string, oid primitive.ObjectID, update any) (*models.Video, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc videoDoc
	if err := m.videos.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return v, nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, storage.ErrInvalidID
	}
	return oid, nil
}

var _ storage.VideoStorage = (*Mongo)(nil)
