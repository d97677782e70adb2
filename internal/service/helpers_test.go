package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/token"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 240 * time.Hour,
		Issuer:          "video-hub-test",
	}
}

func testMediaCfg() config.MediaConfig {
	return config.MediaConfig{
		MaxImageBytes:     1 << 20,
		MaxVideoBytes:     8 << 20,
		ImageContentTypes: []string{"image/png", "image/jpeg"},
		VideoContentTypes: []string{"video/mp4"},
	}
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{Default: 10, Max: 100}
}

// clock — управляемые часы, безопасные для конкурентного чтения.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newCodec() (*token.Codec, *clock) {
	clk := &clock{t: baseTime}
	return token.New(testAuthCfg(), token.WithClock(clk.Now)), clk
}

// bcrypt медленный, поэтому хэш считаем один раз на пароль.
var (
	hashMu    sync.Mutex
	hashCache = map[string]string{}
)

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()

	hashMu.Lock()
	defer hashMu.Unlock()

	if h, ok := hashCache[pw]; ok {
		return h
	}

	h, err := HashPassword(pw)
	require.NoError(t, err)
	hashCache[pw] = h

	return h
}

func png(body string) *models.MediaFile {
	return &models.MediaFile{
		Name:        "img.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func mp4(body string) *models.MediaFile {
	return &models.MediaFile{
		Name:        "clip.mp4",
		ContentType: "video/mp4",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func account(username string) *models.Account {
	return &models.Account{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test " + username,
	}
}
