package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/storage"
)

// Authenticator превращает access-токен запроса в аккаунт.
type Authenticator struct {
	accounts storage.AccountStorage
	codec    TokenCodec
}

// NewAuthenticator создаёт Authenticator.
func NewAuthenticator(accounts storage.AccountStorage, codec TokenCodec) *Authenticator {
	return &Authenticator{accounts: accounts, codec: codec}
}

// ResolveSubject проверяет access-токен и загружает профиль без секретов.
// Пустой, битый или просроченный токен — ErrUnauthenticated;
// токен валиден, но аккаунт удалён — ErrAccountNotFound.
func (a *Authenticator) ResolveSubject(ctx context.Context, raw string) (*models.Account, error) {
	const op = "service.authenticator.ResolveSubject"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	claims, err := a.codec.Verify(raw, models.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnauthenticated, err)
	}

	acc, err := a.accounts.ProfileByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}
