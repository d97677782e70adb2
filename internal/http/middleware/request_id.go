package middleware

import (
	"net/http"

	"github.com/google/uuid"

	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
)

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID принимает входящий X-Request-Id, если он пригоден для логов,
// иначе выдаёт новый UUID. Итоговый id уходит в ответ, в заголовок запроса
// и в контекст (logctx.WithRequestID).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			next.ServeHTTP(w, r.WithContext(logctx.WithRequestID(r.Context(), id)))
		})
	}
}

// validRequestID: непустой, не длиннее maxRequestIDLen, только видимый ASCII.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
