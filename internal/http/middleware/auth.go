package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/video-hub/internal/errors"
	"github.com/pribylovaa/video-hub/internal/models"
)

// AccessTokenCookie — имя cookie с access-токеном.
const AccessTokenCookie = "accessToken"

// SubjectResolver — проверка access-токена (реализация: service.Authenticator).
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, raw string) (*models.Account, error)
}

type accountKey struct{}

// WithAccount кладёт аутентифицированный аккаунт в контекст.
func WithAccount(ctx context.Context, acc *models.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acc)
}

// AccountFrom достаёт аккаунт, положенный Authenticate.
func AccountFrom(ctx context.Context) (*models.Account, bool) {
	acc, ok := ctx.Value(accountKey{}).(*models.Account)
	return acc, ok && acc != nil
}

// Authenticate требует access-токен: сначала из cookie accessToken,
// затем из заголовка Authorization: Bearer <token>.
// При неудаче отвечает 401 и не вызывает следующий обработчик.
func Authenticate(resolver SubjectResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc, err := resolver.ResolveSubject(r.Context(), AccessToken(r))
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}

// AccessToken извлекает сырой access-токен из запроса или "".
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}
