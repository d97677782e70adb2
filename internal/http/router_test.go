package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/video-hub/internal/config"
	"github.com/pribylovaa/video-hub/internal/http/handlers"
	"github.com/pribylovaa/video-hub/internal/http/middleware"
	"github.com/pribylovaa/video-hub/internal/service"
	"github.com/pribylovaa/video-hub/internal/storage/memory"
	"github.com/pribylovaa/video-hub/internal/token"
)

// Сценарные тесты: весь HTTP-стек поверх in-memory хранилищ.

type env struct {
	t      *testing.T
	srv    *httptest.Server
	media  *memory.Media
	client *http.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()

	authCfg := config.AuthConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 240 * time.Hour,
		Issuer:          "video-hub-test",
	}
	mediaCfg := config.MediaConfig{
		MaxImageBytes:     1 << 20,
		MaxVideoBytes:     4 << 20,
		ImageContentTypes: []string{"image/png"},
		VideoContentTypes: []string{"video/mp4"},
	}

	store := memory.New()
	media := memory.NewMedia("http://media.local")
	codec := token.New(authCfg)

	h := &handlers.Handlers{
		Sessions:       service.NewSessionManager(store, codec),
		Accounts:       service.NewAccounts(store, media, mediaCfg),
		Videos:         service.NewVideos(store, store, media, mediaCfg, config.LimitsConfig{Default: 10, Max: 100}),
		Cookies:        handlers.Cookies{Secure: true},
		MaxUploadBytes: 8 << 20,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(h, service.NewAuthenticator(store, codec), Options{
		Logger:   logger,
		Timeout:  5 * time.Second,
		BasePath: "/api/v1",
		Metrics:  middleware.NewMetrics(prometheus.NewRegistry()),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &env{t: t, srv: srv, media: media, client: srv.Client()}
}

type part struct {
	name, filename, contentType, body string
}

func multipartBody(t *testing.T, parts ...part) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.name, p.body))
			continue
		}
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+p.name+`"; filename="`+p.filename+`"`)
		hdr.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func (e *env) do(method, path, bearer string, body io.Reader, contentType string) *http.Response {
	e.t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+"/api/v1"+path, body)
	require.NoError(e.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *env) json(method, path, bearer string, in any) *http.Response {
	e.t.Helper()

	b, err := json.Marshal(in)
	require.NoError(e.t, err)
	return e.do(method, path, bearer, bytes.NewReader(b), "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type video struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published"`
}

func (e *env) register(username string) {
	e.t.Helper()

	body, ct := multipartBody(e.t,
		part{name: "fullName", body: "User " + username},
		part{name: "email", body: username + "@example.com"},
		part{name: "username", body: username},
		part{name: "password", body: "secret123"},
		part{name: "avatar", filename: "a.png", contentType: "image/png", body: "png-bytes"},
	)
	resp := e.do(http.MethodPost, "/users/register", "", body, ct)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
}

func (e *env) login(username string) tokens {
	e.t.Helper()

	resp := e.json(http.MethodPost, "/users/login", "", map[string]string{"username": username, "password": "secret123"})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	return decode[tokens](e.t, resp)
}

func (e *env) publish(bearer, title string) video {
	e.t.Helper()

	body, ct := multipartBody(e.t,
		part{name: "title", body: title},
		part{name: "description", body: "about " + title},
		part{name: "duration", body: "42.5"},
		part{name: "videoFile", filename: "v.mp4", contentType: "video/mp4", body: "mp4-bytes"},
		part{name: "thumbnail", filename: "t.png", contentType: "image/png", body: "png-bytes"},
	)
	resp := e.do(http.MethodPost, "/videos", bearer, body, ct)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return decode[video](e.t, resp)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	e.register("alice")

	body, ct := multipartBody(t,
		part{name: "fullName", body: "Dupe"},
		part{name: "email", body: "other@example.com"},
		part{name: "username", body: "ALICE"},
		part{name: "password", body: "secret123"},
		part{name: "avatar", filename: "a.png", contentType: "image/png", body: "png"},
	)
	resp := e.do(http.MethodPost, "/users/register", "", body, ct)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already_exists", decode[errBody](t, resp).Error.Code)

	// Неверный пароль и неизвестный пользователь неразличимы.
	resp = e.json(http.MethodPost, "/users/login", "", map[string]string{"username": "alice", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	wrongPW := decode[errBody](t, resp)

	resp = e.json(http.MethodPost, "/users/login", "", map[string]string{"username": "ghost", "password": "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	unknown := decode[errBody](t, resp)
	require.Equal(t, wrongPW.Error.Message, unknown.Error.Message)
	require.Equal(t, "invalid credentials", unknown.Error.Message)

	resp = e.json(http.MethodPost, "/users/login", "", map[string]string{"email": "ALICE@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookies[name]
		require.NotNil(t, c, name)
		require.True(t, c.HttpOnly, name)
		require.True(t, c.Secure, name)
		require.NotEmpty(t, c.Value, name)
	}

	tk := decode[tokens](t, resp)
	require.Equal(t, cookies["accessToken"].Value, tk.AccessToken)

	resp = e.do(http.MethodGet, "/users/profile", tk.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[map[string]any](t, resp)
	require.Equal(t, "alice", profile["username"])
	require.NotContains(t, profile, "password_hash")
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	e := newEnv(t)
	e.register("alice")
	tk := e.login("alice")

	resp := e.do(http.MethodGet, "/users/profile", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[errBody](t, resp)
	require.Equal(t, "unauthenticated", body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
	require.Equal(t, resp.Header.Get("X-Request-Id"), body.Error.RequestID)

	// Refresh-токен не годится как access.
	resp = e.do(http.MethodGet, "/videos", tk.RefreshToken, nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Cookie-канал.
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+"/api/v1/users/profile", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: tk.AccessToken})
	cresp, err := e.client.Do(req)
	require.NoError(t, err)
	defer cresp.Body.Close()
	require.Equal(t, http.StatusOK, cresp.StatusCode)
}

func TestRefreshRotationAndLogout(t *testing.T) {
	e := newEnv(t)
	e.register("alice")
	first := e.login("alice")

	resp := e.json(http.MethodPost, "/users/refresh-token", "", map[string]string{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[tokens](t, resp)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	resp = e.json(http.MethodPost, "/users/refresh-token", "", map[string]string{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errBody](t, resp)
	require.Equal(t, "stale_credential", body.Error.Code)
	require.Equal(t, "stale credential", body.Error.Message)

	// Refresh из cookie.
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/users/refresh-token", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: second.RefreshToken})
	cresp, err := e.client.Do(req)
	require.NoError(t, err)
	defer cresp.Body.Close()
	require.Equal(t, http.StatusOK, cresp.StatusCode)
	third := decode[tokens](t, cresp)

	resp = e.do(http.MethodPost, "/users/logout", third.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, c := range resp.Cookies() {
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}

	resp = e.json(http.MethodPost, "/users/refresh-token", "", map[string]string{"refresh_token": third.RefreshToken})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decode[errBody](t, resp)
	require.Equal(t, "session_revoked", body.Error.Code)
	require.Equal(t, "session revoked", body.Error.Message)

	resp = e.json(http.MethodPost, "/users/refresh-token", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_argument", decode[errBody](t, resp).Error.Code)

	resp = e.json(http.MethodPost, "/users/refresh-token", "", map[string]string{"refresh_token": "garbage"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_credential", decode[errBody](t, resp).Error.Code)
}

func TestVideoOwnership(t *testing.T) {
	e := newEnv(t)
	e.register("alice")
	e.register("bob")
	alice, bob := e.login("alice"), e.login("bob")

	v := e.publish(alice.AccessToken, "Intro")
	require.True(t, v.IsPublished)

	// Чтение доступно любому аутентифицированному.
	resp := e.do(http.MethodGet, "/videos/"+v.ID, bob.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, ct := multipartBody(t, part{name: "title", body: "Hacked"}, part{name: "description", body: "x"})
	resp = e.do(http.MethodPatch, "/videos/"+v.ID, bob.AccessToken, body, ct)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "permission_denied", decode[errBody](t, resp).Error.Code)

	resp = e.do(http.MethodPatch, "/videos/toggle/publish/"+v.ID, bob.AccessToken, nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodDelete, "/videos/"+v.ID, bob.AccessToken, nil, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(http.MethodPatch, "/videos/toggle/publish/"+v.ID, alice.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, decode[video](t, resp).IsPublished)

	body, ct = multipartBody(t, part{name: "title", body: "Intro v2"}, part{name: "description", body: "updated"})
	resp = e.do(http.MethodPatch, "/videos/"+v.ID, alice.AccessToken, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Intro v2", decode[video](t, resp).Title)

	resp = e.do(http.MethodDelete, "/videos/"+v.ID, alice.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, e.media.Len()) // остались только аватары

	resp = e.do(http.MethodGet, "/videos/"+v.ID, alice.AccessToken, nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(http.MethodGet, "/videos/not-an-id", alice.AccessToken, nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListVideos(t *testing.T) {
	e := newEnv(t)
	e.register("alice")
	tk := e.login("alice")

	for _, title := range []string{"Go basics", "Go channels", "Cooking"} {
		e.publish(tk.AccessToken, title)
	}

	resp := e.do(http.MethodGet, "/videos?query=go&sortBy=title&sortType=asc&limit=1&page=2", tk.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	page := decode[struct {
		Items      []video `json:"items"`
		Total      int64   `json:"total"`
		Page       int     `json:"page"`
		Limit      int     `json:"limit"`
		TotalPages int64   `json:"total_pages"`
	}](t, resp)
	require.Equal(t, int64(2), page.Total)
	require.Equal(t, int64(2), page.TotalPages)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Go channels", page.Items[0].Title)

	resp = e.do(http.MethodGet, "/videos?page=abc", tk.AccessToken, nil, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodGet, "/videos?userId=00000000-0000-0000-0000-000000000001", tk.AccessToken, nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAccountUpdates(t *testing.T) {
	e := newEnv(t)
	e.register("alice")
	tk := e.login("alice")

	resp := e.json(http.MethodPost, "/users/change-password", tk.AccessToken,
		map[string]string{"old_password": "wrong-one", "new_password": "new-secret-1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid old password", decode[errBody](t, resp).Error.Message)

	resp = e.json(http.MethodPost, "/users/change-password", tk.AccessToken,
		map[string]string{"old_password": "secret123", "new_password": "new-secret-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.json(http.MethodPatch, "/users/profile", tk.AccessToken,
		map[string]string{"full_name": "Alice L.", "email": "alice.l@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice.l@example.com", decode[map[string]any](t, resp)["email"])

	resp = e.json(http.MethodPatch, "/users/profile", tk.AccessToken,
		map[string]any{"full_name": "Alice", "email": "a@example.com", "role": "admin"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct := multipartBody(t, part{name: "coverImage", filename: "c.png", contentType: "image/png", body: "cover"})
	resp = e.do(http.MethodPatch, "/users/cover-image", tk.AccessToken, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(decode[map[string]any](t, resp)["cover_image_url"].(string), "http://media.local/covers/"))

	body, ct = multipartBody(t, part{name: "avatar", filename: "a.txt", contentType: "text/plain", body: "txt"})
	resp = e.do(http.MethodPatch, "/users/avatar", tk.AccessToken, body, ct)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
