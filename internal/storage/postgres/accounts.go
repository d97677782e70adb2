package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

const accountColumns = `id, username, email, full_name, avatar_url, avatar_key, cover_url, cover_key,
	password_hash, COALESCE(refresh_token_hash, ''), created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.FullName,
		&a.AvatarURL,
		&a.AvatarKey,
		&a.CoverURL,
		&a.CoverKey,
		&a.PasswordHash,
		&a.RefreshTokenHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateAccount вставляет аккаунт; username/email приводятся к нижнему регистру.
func (s *Storage) CreateAccount(ctx context.Context, a *models.Account) error {
	const op = "storage/postgres/CreateAccount"

	a.Username = strings.ToLower(a.Username)
	a.Email = strings.ToLower(a.Email)

	query := `
		INSERT INTO accounts(id, username, email, full_name, avatar_url, avatar_key,
			cover_url, cover_key, password_hash, refresh_token_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		a.ID,
		a.Username,
		a.Email,
		a.FullName,
		a.AvatarURL,
		a.AvatarKey,
		a.CoverURL,
		a.CoverKey,
		a.PasswordHash,
		a.RefreshTokenHash,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AccountByID возвращает аккаунт целиком.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage/postgres/AccountByID"

	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, wrapRead(op, err)
	}

	return a, nil
}

// ProfileByID возвращает аккаунт без секретов.
func (s *Storage) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := s.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := a.Public()
	return &p, nil
}

// AccountByLogin ищет по username или email.
func (s *Storage) AccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	const op = "storage/postgres/AccountByLogin"

	l := strings.ToLower(strings.TrimSpace(login))
	a, err := scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1 OR email = $1 LIMIT 1`, l))
	if err != nil {
		return nil, wrapRead(op, err)
	}

	return a, nil
}

// SetRefreshToken безусловно записывает хэш refresh-токена.
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	return s.execOne(ctx, "storage/postgres/SetRefreshToken",
		`UPDATE accounts SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

// SwapRefreshToken — условный UPDATE: строка меняется, только если хэш всё ещё равен expected.
func (s *Storage) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	const op = "storage/postgres/SwapRefreshToken"

	if expected == "" {
		return false, nil
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE accounts
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2
	`, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ClearRefreshToken обнуляет хэш. Повторный вызов — no-op.
func (s *Storage) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return s.execOne(ctx, "storage/postgres/ClearRefreshToken",
		`UPDATE accounts SET refresh_token_hash = NULL, updated_at = now() WHERE id = $1`, id)
}

// UpdatePassword заменяет хэш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return s.execOne(ctx, "storage/postgres/UpdatePassword",
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

// UpdateProfile меняет ФИО и e-mail.
func (s *Storage) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*models.Account, error) {
	const op = "storage/postgres/UpdateProfile"

	a, err := scanAccount(s.db.QueryRow(ctx, `
		UPDATE accounts
		SET full_name = $2, email = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, fullName, strings.ToLower(email)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		return nil, wrapRead(op, err)
	}

	p := a.Public()
	return &p, nil
}

// UpdateAvatar записывает новый аватар и возвращает ключ прежнего.
func (s *Storage) UpdateAvatar(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	return s.replaceMedia(ctx, "storage/postgres/UpdateAvatar", `
		UPDATE accounts a
		SET avatar_url = $2, avatar_key = $3, updated_at = now()
		FROM (SELECT id, avatar_key FROM accounts WHERE id = $1 FOR UPDATE) prev
		WHERE a.id = prev.id
		RETURNING prev.avatar_key
	`, id, obj)
}

// UpdateCover записывает новую обложку и возвращает ключ прежней.
func (s *Storage) UpdateCover(ctx context.Context, id uuid.UUID, obj models.StoredObject) (string, error) {
	return s.replaceMedia(ctx, "storage/postgres/UpdateCover", `
		UPDATE accounts a
		SET cover_url = $2, cover_key = $3, updated_at = now()
		FROM (SELECT id, cover_key FROM accounts WHERE id = $1 FOR UPDATE) prev
		WHERE a.id = prev.id
		RETURNING prev.cover_key
	`, id, obj)
}

func (s *Storage) replaceMedia(ctx context.Context, op, query string, id uuid.UUID, obj models.StoredObject) (string, error) {
	var prev string
	if err := s.db.QueryRow(ctx, query, id, obj.URL, obj.Key).Scan(&prev); err != nil {
		return "", wrapRead(op, err)
	}

	return prev, nil
}

// execOne выполняет UPDATE по id и ожидает ровно одну затронутую строку.
func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func wrapRead(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ storage.AccountStorage = (*Storage)(nil)
