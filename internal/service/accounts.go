package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
	"github.com/pribylovaa/video-hub/internal/pkg/redact"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// Accounts — регистрация и изменение профиля.
type Accounts struct {
	accounts storage.AccountStorage
	media    storage.MediaStorage
	cfg      config.MediaConfig
}

// NewAccounts создаёт Accounts.
func NewAccounts(accounts storage.AccountStorage, media storage.MediaStorage, cfg config.MediaConfig) *Accounts {
	return &Accounts{accounts: accounts, media: media, cfg: cfg}
}

// RegisterInput — данные формы регистрации. Cover опционален.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
	Avatar   *models.MediaFile
	Cover    *models.MediaFile
}

// Register создаёт аккаунт и загружает аватар (и обложку, если передана).
// Возвращает профиль без секретов.
func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	const op = "service.accounts.Register"

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%s: %w: full name is required", op, ErrValidation)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	username, err := validateUsername(in.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := imageRules("avatar", s.cfg).check(in.Avatar); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Cover != nil {
		if err := imageRules("cover image", s.cfg).check(in.Cover); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// Проверяем занятость до загрузки файлов; гонку закрывает уникальный индекс.
	for _, login := range []string{username, email} {
		_, err := s.accounts.AccountByLogin(ctx, login)
		if err == nil {
			return nil, fmt.Errorf("%s: %w: username or email is taken", op, ErrAlreadyExists)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc := &models.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
	}

	avatar, err := s.media.Upload(ctx, "avatars/"+acc.ID.String(), *in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: upload avatar: %w", op, err)
	}
	acc.AvatarURL, acc.AvatarKey = avatar.URL, avatar.Key

	if in.Cover != nil {
		cover, err := s.media.Upload(ctx, "covers/"+acc.ID.String(), *in.Cover)
		if err != nil {
			removeQuietly(ctx, s.media, avatar.Key)
			return nil, fmt.Errorf("%s: upload cover: %w", op, err)
		}
		acc.CoverURL, acc.CoverKey = cover.URL, cover.Key
	}

	if err := s.accounts.CreateAccount(ctx, acc); err != nil {
		removeQuietly(ctx, s.media, acc.AvatarKey)
		removeQuietly(ctx, s.media, acc.CoverKey)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w: username or email is taken", op, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("account_registered",
		"op", op, "account_id", acc.ID, "email", redact.Email(acc.Email))

	pub := acc.Public()
	return &pub, nil
}

// ChangePassword меняет пароль после проверки текущего.
// Текущая сессия остаётся активной.
func (s *Accounts) ChangePassword(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error {
	const op = "service.accounts.ChangePassword"

	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: %w: old and new passwords are required", op, ErrValidation)
	}

	acc, err := s.accounts.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapAccountErr(err))
	}

	if !CheckPassword(acc.PasswordHash, oldPassword) {
		return fmt.Errorf("%s: %w: invalid old password", op, ErrValidation)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, mapAccountErr(err))
	}

	logctx.From(ctx).Info("password_changed", "op", op, "account_id", accountID)

	return nil
}

// UpdateProfile меняет ФИО и e-mail; оба поля обязательны.
func (s *Accounts) UpdateProfile(ctx context.Context, accountID uuid.UUID, fullName, email string) (*models.Account, error) {
	const op = "service.accounts.UpdateProfile"

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%s: %w: full name is required", op, ErrValidation)
	}

	norm, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := s.accounts.UpdateProfile(ctx, accountID, fullName, norm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapAccountErr(err))
	}

	return acc, nil
}

// UpdateAvatar загружает новый аватар и удаляет прежний объект.
func (s *Accounts) UpdateAvatar(ctx context.Context, accountID uuid.UUID, file *models.MediaFile) (*models.Account, error) {
	const op = "service.accounts.UpdateAvatar"

	if err := imageRules("avatar", s.cfg).check(file); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := s.replaceImage(ctx, accountID, "avatars/", file, s.accounts.UpdateAvatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// UpdateCover загружает новую обложку и удаляет прежний объект.
func (s *Accounts) UpdateCover(ctx context.Context, accountID uuid.UUID, file *models.MediaFile) (*models.Account, error) {
	const op = "service.accounts.UpdateCover"

	if err := imageRules("cover image", s.cfg).check(file); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := s.replaceImage(ctx, accountID, "covers/", file, s.accounts.UpdateCover)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

type imageSetter func(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error)

func (s *Accounts) replaceImage(ctx context.Context, accountID uuid.UUID, prefix string, file *models.MediaFile, set imageSetter) (*models.Account, error) {
	obj, err := s.media.Upload(ctx, prefix+accountID.String(), *file)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	prev, err := set(ctx, accountID, obj)
	if err != nil {
		removeQuietly(ctx, s.media, obj.Key)
		return nil, mapAccountErr(err)
	}

	if prev != obj.Key {
		removeQuietly(ctx, s.media, prev)
	}

	acc, err := s.accounts.ProfileByID(ctx, accountID)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	return acc, nil
}

// mapAccountErr переводит ошибки хранилища аккаунтов в ошибки сервиса.
func mapAccountErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrAccountNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return fmt.Errorf("%w: email is taken", ErrAlreadyExists)
	default:
		return err
	}
}
