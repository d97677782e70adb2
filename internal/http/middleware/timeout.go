package middleware

import (
	"context"
	"mime"
	"net/http"
	"time"
)

// Timeout ограничивает время обработки запроса.
// Загрузки (multipart/form-data) получают отдельный бюджет upload:
// тело с видео читается дольше обычного JSON-запроса. upload<=0 означает d.
// Уже выставленный дедлайн не продлевается.
func Timeout(d, upload time.Duration) Middleware {
	if upload <= 0 {
		upload = d
	}

	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			budget := d
			if isUpload(r) {
				budget = upload
			}

			ctx, cancel := context.WithTimeout(r.Context(), budget)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isUpload(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
