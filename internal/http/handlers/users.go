package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/video-hub/internal/errors"
	"github.com/pribylovaa/video-hub/internal/http/middleware"
	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/service"
)

// subject — аккаунт, положенный middleware.Authenticate.
func subject(r *http.Request) (*models.Account, error) {
	acc, ok := middleware.AccountFrom(r.Context())
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	return acc, nil
}

// Register — POST /users/register (multipart: fullName, email, username, password, avatar, coverImage).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var files openFiles
	defer files.close()

	avatar, err := formFile(r, "avatar", &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cover, err := formFile(r, "coverImage", &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	acc, err := h.Accounts.Register(r.Context(), service.RegisterInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountFromModel(acc))
}

// Login — POST /users/login. Токены отдаются и в cookie, и в теле.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, acc, err := h.Sessions.Login(r.Context(), in.identifier(), in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{
		User:           accountFromModel(acc),
		tokensResponse: tokensFromModel(pair),
	})
}

// RefreshToken — POST /users/refresh-token. Токен из cookie refreshToken или из тела.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var raw string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		raw = strings.TrimSpace(c.Value)
	}

	if raw == "" {
		var in refreshRequest
		if err := decodeOptional(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		raw = in.RefreshToken
	}

	pair, err := h.Sessions.Refresh(r.Context(), raw)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, tokensFromModel(pair))
}

// Logout — POST /users/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Sessions.Logout(r.Context(), acc.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Profile — GET /users/profile.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountFromModel(acc))
}

// ChangePassword — POST /users/change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Accounts.ChangePassword(r.Context(), acc.ID, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

// UpdateProfile — PATCH /users/profile.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.Accounts.UpdateProfile(r.Context(), acc.ID, in.FullName, in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountFromModel(updated))
}

// UpdateAvatar — PATCH /users/avatar (multipart: avatar).
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar)
}

// UpdateCover — PATCH /users/cover-image (multipart: coverImage).
func (h *Handlers) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCover)
}

type imageUpdater func(ctx context.Context, id uuid.UUID, file *models.MediaFile) (*models.Account, error)

func (h *Handlers) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var files openFiles
	defer files.close()

	file, err := formFile(r, field, &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := update(r.Context(), acc.ID, file)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountFromModel(updated))
}
