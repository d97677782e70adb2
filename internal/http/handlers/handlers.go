// Package handlers содержит REST-обработчики video-hub.
// Обработчики только разбирают запрос и собирают ответ;
// вся логика и проверки — в пакете service.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pribylovaa/video-hub/internal/models"
	"github.com/pribylovaa/video-hub/internal/service"
)

// Cookies — параметры cookie с токенами.
type Cookies struct {
	// Secure=false допустим только для локальной разработки по http.
	Secure bool
	Path   string
}

// Handlers агрегирует зависимости (сервисы).
type Handlers struct {
	Sessions *service.SessionManager
	Accounts *service.Accounts
	Videos   *service.Videos
	Cookies  Cookies
	// MaxUploadBytes — предел тела multipart-запроса.
	MaxUploadBytes int64
}

// multipartMemory — сколько формы держать в памяти; остальное уходит во временные файлы.
const multipartMemory = 32 << 20

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: malformed json body", service.ErrValidation)
	}
	return nil
}

// decodeOptional — как decodeStrict, но пустое тело не ошибка.
func decodeOptional(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed json body", service.ErrValidation)
	}
	return nil
}

// parseMultipart ограничивает размер тела и разбирает форму.
// Вызывающий обязан вызвать возвращённую функцию очистки.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, fmt.Errorf("%w: request body is too large", service.ErrValidation)
		}
		return func() {}, fmt.Errorf("%w: malformed multipart form", service.ErrValidation)
	}

	return func() { _ = r.MultipartForm.RemoveAll() }, nil
}

// openFiles держит открытые части формы до конца обработки запроса.
type openFiles []multipart.File

func (o *openFiles) close() {
	for _, f := range *o {
		_ = f.Close()
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// formFile достаёт файл из multipart-формы; отсутствующее поле — (nil, nil).
func formFile(r *http.Request, field string, files *openFiles) (*models.MediaFile, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s file", service.ErrValidation, field)
	}
	*files = append(*files, f)

	return &models.MediaFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, nil
}
