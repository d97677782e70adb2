package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// accountDoc — представление аккаунта в коллекции accounts.
// UUID хранится строкой, чтобы _id был читаемым и совпадал с postgres-реализацией.
type accountDoc struct {
	ID               string    `bson:"_id"`
	Username         string    `bson:"username"`
	Email            string    `bson:"email"`
	FullName         string    `bson:"full_name"`
	AvatarURL        string    `bson:"avatar_url,omitempty"`
	AvatarKey        string    `bson:"avatar_key,omitempty"`
	CoverURL         string    `bson:"cover_url,omitempty"`
	CoverKey         string    `bson:"cover_key,omitempty"`
	PasswordHash     string    `bson:"password_hash,omitempty"`
	RefreshTokenHash string    `bson:"refresh_token_hash,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

// profileProjection исключает секреты из выборки.
var profileProjection = bson.D{
	{Key: "password_hash", Value: 0},
	{Key: "refresh_token_hash", Value: 0},
}

func (d accountDoc) toModel() (*models.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("bad account id %q: %w", d.ID, err)
	}

	return &models.Account{
		ID:               id,
		Username:         d.Username,
		Email:            d.Email,
		FullName:         d.FullName,
		AvatarURL:        d.AvatarURL,
		AvatarKey:        d.AvatarKey,
		CoverURL:         d.CoverURL,
		CoverKey:         d.CoverKey,
		PasswordHash:     d.PasswordHash,
		RefreshTokenHash: d.RefreshTokenHash,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

// CreateAccount вставляет аккаунт; username/email приводятся к нижнему регистру.
func (m *Mongo) CreateAccount(ctx context.Context, a *models.Account) error {
	const op = "storage/mongo/CreateAccount"

	now := m.timestamp()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
	a.Username = strings.ToLower(a.Username)
	a.Email = strings.ToLower(a.Email)

	doc := accountDoc{
		ID:               a.ID.String(),
		Username:         a.Username,
		Email:            a.Email,
		FullName:         a.FullName,
		AvatarURL:        a.AvatarURL,
		AvatarKey:        a.AvatarKey,
		CoverURL:         a.CoverURL,
		CoverKey:         a.CoverKey,
		PasswordHash:     a.PasswordHash,
		RefreshTokenHash: a.RefreshTokenHash,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}

	if _, err := m.accounts.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AccountByID возвращает аккаунт целиком.
func (m *Mongo) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return m.findAccount(ctx, "storage/mongo/AccountByID", bson.D{{Key: "_id", Value: id.String()}}, nil)
}

// ProfileByID возвращает аккаунт без секретов.
func (m *Mongo) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return m.findAccount(ctx, "storage/mongo/ProfileByID", bson.D{{Key: "_id", Value: id.String()}}, profileProjection)
}

// AccountByLogin ищет по username или email.
func (m *Mongo) AccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	l := strings.ToLower(strings.TrimSpace(login))
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: l}},
		bson.D{{Key: "email", Value: l}},
	}}}

	return m.findAccount(ctx, "storage/mongo/AccountByLogin", filter, nil)
}

func (m *Mongo) findAccount(ctx context.Context, op string, filter, projection bson.D) (*models.Account, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var doc accountDoc
	if err := m.accounts.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// SetRefreshToken безусловно записывает хэш refresh-токена.
func (m *Mongo) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage/mongo/SetRefreshToken"

	res, err := m.accounts.UpdateByID(ctx, id.String(), bson.D{{Key: "$set", Value: bson.D{
		{Key: "refresh_token_hash", Value: hash},
		{Key: "updated_at", Value: m.timestamp()},
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshToken — условное обновление: фильтр включает ожидаемый хэш,
// поэтому из двух конкурентных запросов документ совпадёт только у одного.
func (m *Mongo) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	const op = "storage/mongo/SwapRefreshToken"

	if expected == "" {
		return false, nil
	}

	filter := bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "refresh_token_hash", Value: expected},
	}
	res, err := m.accounts.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "refresh_token_hash", Value: next},
		{Key: "updated_at", Value: m.timestamp()},
	}}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res.MatchedCount == 1, nil
}

// ClearRefreshToken снимает хэш ($unset). Повторный вызов — no-op.
func (m *Mongo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	const op = "storage/mongo/ClearRefreshToken"

	res, err := m.accounts.UpdateByID(ctx, id.String(), bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refresh_token_hash", Value: ""}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: m.timestamp()}}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdatePassword заменяет хэш пароля.
func (m *Mongo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage/mongo/UpdatePassword"

	res, err := m.accounts.UpdateByID(ctx, id.String(), bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: hash},
		{Key: "updated_at", Value: m.timestamp()},
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateProfile меняет ФИО и e-mail и возвращает профиль после изменения.
func (m *Mongo) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*models.Account, error) {
	const op = "storage/mongo/UpdateProfile"

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "full_name", Value: fullName},
		{Key: "email", Value: strings.ToLower(email)},
		{Key: "updated_at", Value: m.timestamp()},
	}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(profileProjection)

	var doc accountDoc
	err := m.accounts.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id.String()}}, update, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongodriver.ErrNoDocuments):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case mongodriver.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// UpdateAvatar записывает новый аватар и возвращает ключ прежнего.
func (m *Mongo) UpdateAvatar(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	return m.replaceMedia(ctx, "storage/mongo/UpdateAvatar", id, "avatar", obj)
}

// UpdateCover записывает новую обложку и возвращает ключ прежней.
func (m *Mongo) UpdateCover(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	return m.replaceMedia(ctx, "storage/mongo/UpdateCover", id, "cover", obj)
}

// replaceMedia атомарно меняет <field>_url/<field>_key и читает документ «до».
func (m *Mongo) replaceMedia(ctx context.Context, op string, id uuid.UUID, field string, obj models.StoredObject) (string, error) {
	keyField := field + "_key"
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: field + "_url", Value: obj.URL},
		{Key: keyField, Value: obj.Key},
		{Key: "updated_at", Value: m.timestamp()},
	}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.D{{Key: keyField, Value: 1}})

	var prev bson.M
	err := m.accounts.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id.String()}}, update, opts).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key, _ := prev[keyField].(string)
	return key, nil
}

var _ storage.AccountStorage = (*Mongo)(nil)
