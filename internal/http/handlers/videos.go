package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/video-hub/internal/errors"
	"github.com/pribylovaa/video-hub/internal/service"
)

// ListVideos — GET /videos?page=&limit=&query=&sortBy=&sortType=&userId=.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.Videos.List(r.Context(), service.ListInput{
		Page:     page,
		Limit:    limit,
		Query:    q.Get("query"),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		UserID:   q.Get("userId"),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videoPageFromModel(res))
}

// PublishVideo — POST /videos (multipart: title, description, duration, videoFile, thumbnail).
func (h *Handlers) PublishVideo(w http.ResponseWriter, r *http.Request) {
	owner, err := subject(r)
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

	video, err := formFile(r, "videoFile", &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	thumb, err := formFile(r, "thumbnail", &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var duration float64
	if s := strings.TrimSpace(r.FormValue("duration")); s != "" {
		duration, err = strconv.ParseFloat(s, 64)
		if err != nil {
			apierrors.WriteError(w, r, fmt.Errorf("%w: duration must be a number", service.ErrValidation))
			return
		}
	}

	v, err := h.Videos.Publish(r.Context(), owner, service.PublishInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Duration:    duration,
		Video:       video,
		Thumbnail:   thumb,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, videoFromModel(v))
}

// GetVideo — GET /videos/{videoID}.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	v, err := h.Videos.VideoByID(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videoFromModel(v))
}

// UpdateVideo — PATCH /videos/{videoID} (multipart: title, description, thumbnail?).
func (h *Handlers) UpdateVideo(w http.ResponseWriter, r *http.Request) {
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

	thumb, err := formFile(r, "thumbnail", &files)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	v, err := h.Videos.Update(r.Context(), acc, chi.URLParam(r, "videoID"), service.UpdateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Thumbnail:   thumb,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videoFromModel(v))
}

// DeleteVideo — DELETE /videos/{videoID}.
func (h *Handlers) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Videos.Delete(r.Context(), acc, chi.URLParam(r, "videoID")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "video deleted"})
}

// TogglePublish — PATCH /videos/toggle/publish/{videoID}.
func (h *Handlers) TogglePublish(w http.ResponseWriter, r *http.Request) {
	acc, err := subject(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	v, err := h.Videos.TogglePublish(r.Context(), acc, chi.URLParam(r, "videoID"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videoFromModel(v))
}

// intParam разбирает необязательный целочисленный query-параметр; пусто — 0.
func intParam(s, name string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrValidation, name)
	}

	return n, nil
}
