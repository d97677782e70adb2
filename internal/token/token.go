// Package token выпускает и проверяет подписанные JWT (HS256) для сессий video-hub.
//
// Access и refresh подписываются разными секретами, поэтому токен одного вида
// никогда не проходит проверку как токен другого. Проверка чистая: не ходит
// в хранилище и зависит только от ключей и часов.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
)

var (
	// ErrSigning — нет ключа или подпись не удалась.
	ErrSigning = errors.New("token signing failed")
	// ErrMalformed — токен не разбирается, не тот вид или нет subject.
	ErrMalformed = errors.New("token malformed")
	// ErrSignatureInvalid — подпись не сходится (подмена, чужой ключ, другой алгоритм).
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired — срок действия истёк.
	ErrExpired = errors.New("token expired")
)

// Claims — результат успешной проверки.
type Claims struct {
	SubjectID uuid.UUID
	ExpiresAt time.Time
}

type claims struct {
	Kind models.CredentialKind `json:"kind"`
	jwt.RegisteredClaims
}

// Codec — выпуск и проверка токенов. Безопасен для конкурентного использования.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New создаёт Codec из AuthConfig.
func New(cfg config.AuthConfig, opts ...Option) *Codec {
	c := &Codec{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// IssueAccess выпускает короткоживущий access-токен.
func (c *Codec) IssueAccess(subjectID uuid.UUID) (models.Credential, error) {
	return c.issue(subjectID, models.KindAccess)
}

// IssueRefresh выпускает долгоживущий refresh-токен.
func (c *Codec) IssueRefresh(subjectID uuid.UUID) (models.Credential, error) {
	return c.issue(subjectID, models.KindRefresh)
}

// Verify проверяет подпись, срок и вид токена.
func (c *Codec) Verify(raw string, kind models.CredentialKind) (Claims, error) {
	const op = "token/Verify"

	key, _, err := c.params(kind)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	var cl claims
	_, err = jwt.ParseWithClaims(raw, &cl,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, fmt.Errorf("%s: %w", op, ErrExpired)
		default:
			return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
		}
	}

	if cl.Kind != kind {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	sub, err := uuid.Parse(cl.Subject)
	if err != nil || sub == uuid.Nil {
		return Claims{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	return Claims{SubjectID: sub, ExpiresAt: cl.ExpiresAt.Time}, nil
}

func (c *Codec) issue(subjectID uuid.UUID, kind models.CredentialKind) (models.Credential, error) {
	const op = "token/issue"

	key, ttl, err := c.params(kind)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(key) == 0 {
		return models.Credential{}, fmt.Errorf("%s: %w: empty %s key", op, ErrSigning, kind)
	}

	// JWT хранит время с точностью до секунды; усекаем заранее, чтобы
	// Credential.ExpiresAt совпадал с тем, что реально подписано.
	now := c.now().UTC().Truncate(time.Second)
	id := uuid.NewString()
	cl := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subjectID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(key)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%s: %w: %v", op, ErrSigning, err)
	}

	return models.Credential{
		Token:     signed,
		Kind:      kind,
		SubjectID: subjectID,
		ID:        id,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (c *Codec) params(kind models.CredentialKind) ([]byte, time.Duration, error) {
	switch kind {
	case models.KindAccess:
		return c.accessKey, c.accessTTL, nil
	case models.KindRefresh:
		return c.refreshKey, c.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown credential kind %q", kind)
	}
}
