package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/cache"
	"github.com/pribylovaa/video-hub/internal/models"
	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
	"github.com/pribylovaa/video-hub/internal/pkg/redact"
	"github.com/pribylovaa/video-hub/internal/storage"
	"github.com/pribylovaa/video-hub/internal/token"
)

// SessionManager — вход, выход и ротация refresh-токена.
//
// Сессия аккаунта — это refresh-хэш в записи аккаунта:
// пусто — анонимно, иначе активна сессия с последним выданным токеном.
type SessionManager struct {
	accounts storage.AccountStorage
	codec    TokenCodec
	limiter  cache.LoginLimiter // может быть nil
}

// SessionOption настраивает SessionManager.
type SessionOption func(*SessionManager)

// WithLoginLimiter включает подсчёт неудачных попыток входа.
func WithLoginLimiter(l cache.LoginLimiter) SessionOption {
	return func(m *SessionManager) { m.limiter = l }
}

// NewSessionManager создаёт SessionManager.
func NewSessionManager(accounts storage.AccountStorage, codec TokenCodec, opts ...SessionOption) *SessionManager {
	m := &SessionManager{accounts: accounts, codec: codec}
	for _, o := range opts {
		o(m)
	}

	return m
}

// Login проверяет логин (username или e-mail) и пароль, выпускает пару токенов
// и перезаписывает refresh-хэш аккаунта. Предыдущая сессия при этом теряет силу.
func (m *SessionManager) Login(ctx context.Context, login, password string) (*models.TokenPair, *models.Account, error) {
	const op = "service.session.Login"

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w: login and password are required", op, ErrValidation)
	}

	lg := logctx.From(ctx).With("op", op, "login", redact.Login(login))

	if m.limiter != nil {
		ok, err := m.limiter.Allow(ctx, login)
		switch {
		case err != nil:
			lg.Warn("login_limiter_unavailable", "err", err)
		case !ok:
			lg.Warn("login_throttled")
			return nil, nil, fmt.Errorf("%s: %w", op, ErrTooManyAttempts)
		}
	}

	acc, err := m.accounts.AccountByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		CheckPassword(string(dummyHash), password)
		lg.Info("login_failed", "reason", "unknown_account")
		m.fail(ctx, login)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAuthentication)
	}

	if !CheckPassword(acc.PasswordHash, password) {
		lg.Info("login_failed", "reason", "password_mismatch", "account_id", acc.ID)
		m.fail(ctx, login)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAuthentication)
	}

	pair, err := m.issuePair(acc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := m.accounts.SetRefreshToken(ctx, acc.ID, hashToken(pair.Refresh.Token)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrAuthentication)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if m.limiter != nil {
		if err := m.limiter.Reset(ctx, login); err != nil {
			lg.Warn("login_limiter_reset_failed", "err", err)
		}
	}

	lg.Info("login_succeeded", "account_id", acc.ID)

	pub := acc.Public()
	return pair, &pub, nil
}

// Logout снимает refresh-хэш. Повторный выход и выход удалённого аккаунта — не ошибка.
func (m *SessionManager) Logout(ctx context.Context, accountID uuid.UUID) error {
	const op = "service.session.Logout"

	if err := m.accounts.ClearRefreshToken(ctx, accountID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("logout", "op", op, "account_id", accountID)

	return nil
}

// Refresh обменивает refresh-токен на новую пару.
//
// Предъявленный токен должен совпадать с сохранённым; замена выполняется
// условной записью, поэтому из нескольких одновременных обновлений одним
// токеном успешно ровно одно, остальные получают ErrStaleCredential.
func (m *SessionManager) Refresh(ctx context.Context, raw string) (*models.TokenPair, error) {
	const op = "service.session.Refresh"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%s: %w: refresh token is required", op, ErrValidation)
	}

	claims, err := m.codec.Verify(raw, models.KindRefresh)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrCredentialExpired)
		}
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredential)
	}

	lg := logctx.From(ctx).With("op", op, "account_id", claims.SubjectID)

	acc, err := m.accounts.AccountByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	presented := hashToken(raw)
	if acc.RefreshTokenHash == "" {
		lg.Info("refresh_revoked")
		return nil, fmt.Errorf("%s: %w", op, ErrSessionRevoked)
	}
	if !sameHash(acc.RefreshTokenHash, presented) {
		lg.Warn("refresh_stale")
		return nil, fmt.Errorf("%s: %w", op, ErrStaleCredential)
	}

	pair, err := m.issuePair(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := m.accounts.SwapRefreshToken(ctx, acc.ID, presented, hashToken(pair.Refresh.Token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !swapped {
		// Между чтением и записью хэш сменился: параллельный refresh, вход или выход.
		cur, err := m.accounts.AccountByID(ctx, acc.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		case cur.RefreshTokenHash == "":
			lg.Info("refresh_revoked")
			return nil, fmt.Errorf("%s: %w", op, ErrSessionRevoked)
		default:
			lg.Warn("refresh_stale", "reason", "lost_race")
			return nil, fmt.Errorf("%s: %w", op, ErrStaleCredential)
		}
	}

	lg.Debug("refresh_rotated")

	return pair, nil
}

func (m *SessionManager) issuePair(id uuid.UUID) (*models.TokenPair, error) {
	access, err := m.codec.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	refresh, err := m.codec.IssueRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	return &models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *SessionManager) fail(ctx context.Context, login string) {
	if m.limiter == nil {
		return
	}

	if err := m.limiter.Fail(ctx, login); err != nil {
		logctx.From(ctx).Warn("login_limiter_fail_failed", "login", redact.Login(login), "err", err)
	}
}
