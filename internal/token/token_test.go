package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 240 * time.Hour,
		Issuer:          "video-hub-test",
	}
}

// clock — управляемые часы для тестов.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newCodec(cfg config.AuthConfig) (*Codec, *clock) {
	clk := &clock{t: baseTime}
	return New(cfg, WithClock(clk.Now)), clk
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())
	uid := uuid.New()

	for _, tc := range []struct {
		kind  models.CredentialKind
		issue func(uuid.UUID) (models.Credential, error)
		ttl   time.Duration
	}{
		{kind: models.KindAccess, issue: c.IssueAccess, ttl: 15 * time.Minute},
		{kind: models.KindRefresh, issue: c.IssueRefresh, ttl: 240 * time.Hour},
	} {
		cred, err := tc.issue(uid)
		require.NoError(t, err)
		require.Equal(t, tc.kind, cred.Kind)
		require.Equal(t, uid, cred.SubjectID)
		require.NotEmpty(t, cred.ID)
		require.Equal(t, baseTime, cred.IssuedAt)
		require.Equal(t, baseTime.Add(tc.ttl), cred.ExpiresAt)

		claims, err := c.Verify(cred.Token, tc.kind)
		require.NoError(t, err)
		require.Equal(t, uid, claims.SubjectID)
		require.True(t, cred.ExpiresAt.Equal(claims.ExpiresAt))
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(testCfg())
	cred, err := c.IssueAccess(uuid.New())
	require.NoError(t, err)

	clk.Advance(15*time.Minute - time.Second)
	_, err = c.Verify(cred.Token, models.KindAccess)
	require.NoError(t, err)

	// Ровно в момент истечения токен уже недействителен.
	clk.Advance(time.Second)
	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrExpired)

	clk.Advance(time.Hour)
	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_RefreshExpired(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(testCfg())
	cred, err := c.IssueRefresh(uuid.New())
	require.NoError(t, err)

	clk.Advance(241 * time.Hour)
	_, err = c.Verify(cred.Token, models.KindRefresh)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WrongKeyIsSignatureInvalid(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())

	other := testCfg()
	other.AccessSecret = "someone-else"
	foreign, _ := newCodec(other)

	cred, err := foreign.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())

	victim, err := c.IssueAccess(uuid.New())
	require.NoError(t, err)
	attacker, err := c.IssueAccess(uuid.New())
	require.NoError(t, err)

	// Подставляем чужой payload под подпись жертвы.
	vp := strings.Split(victim.Token, ".")
	ap := strings.Split(attacker.Token, ".")
	forged := strings.Join([]string{vp[0], ap[1], vp[2]}, ".")

	_, err = c.Verify(forged, models.KindAccess)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())

	cl := claims{
		Kind: models.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "video-hub-test",
			ExpiresAt: jwt.NewNumericDate(baseTime.Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, cl).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(raw, models.KindAccess)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_RefreshPresentedAsAccess(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())
	cred, err := c.IssueRefresh(uuid.New())
	require.NoError(t, err)

	// Разные секреты: подпись не сходится.
	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_KindMismatchWithSharedKey(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.RefreshSecret = cfg.AccessSecret
	c, _ := newCodec(cfg)

	cred, err := c.IssueRefresh(uuid.New())
	require.NoError(t, err)

	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())

	for _, raw := range []string{"", "abc", "a.b.c", "not.a.jwt.at.all"} {
		_, err := c.Verify(raw, models.KindAccess)
		require.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())

	other := testCfg()
	other.Issuer = "another-service"
	foreign, _ := newCodec(other)

	cred, err := foreign.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = c.Verify(cred.Token, models.KindAccess)
	require.ErrorIs(t, err, ErrMalformed)
}

// Два refresh-токена, выпущенные в одну секунду, различаются.
func TestIssueRefresh_SameSecondDistinct(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())
	uid := uuid.New()

	a, err := c.IssueRefresh(uid)
	require.NoError(t, err)
	b, err := c.IssueRefresh(uid)
	require.NoError(t, err)

	require.NotEqual(t, a.Token, b.Token)
	require.NotEqual(t, a.ID, b.ID)
}

func TestIssue_EmptyKey(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.AccessSecret = ""
	c, _ := newCodec(cfg)

	_, err := c.IssueAccess(uuid.New())
	require.ErrorIs(t, err, ErrSigning)

	_, err = c.IssueRefresh(uuid.New())
	require.NoError(t, err)
}

func TestVerify_UnknownKind(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(testCfg())
	cred, err := c.IssueAccess(uuid.New())
	require.NoError(t, err)

	_, err = c.Verify(cred.Token, models.CredentialKind("session"))
	require.ErrorIs(t, err, ErrMalformed)
}
