// errors стандартизирует ответы об ошибках HTTP-слоя video-hub.
// На вход он принимает ошибку сервисного слоя, а на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный code и безопасное message без утечки деталей.
//
// Источник истинности по маппингу: сентинелы пакета service.
// Для ошибок валидации и конфликтов message содержит пояснение,
// записанное сервисом после сентинела ("invalid argument: <пояснение>").
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	logctx "github.com/pribylovaa/video-hub/internal/pkg/log"
	"github.com/pribylovaa/video-hub/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — идентификатор запроса (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target error
	status int
	code   string
	// detailed — можно ли отдать клиенту пояснение из текста ошибки.
	detailed bool
}

// Порядок важен: первое совпадение по errors.Is выигрывает.
var table = []mapping{
	{service.ErrValidation, http.StatusBadRequest, "invalid_argument", true},
	{service.ErrInvalidCredential, http.StatusBadRequest, "invalid_credential", false},
	{service.ErrCredentialExpired, http.StatusBadRequest, "credential_expired", false},
	{service.ErrStaleCredential, http.StatusBadRequest, "stale_credential", false},
	{service.ErrSessionRevoked, http.StatusBadRequest, "session_revoked", false},
	{service.ErrAuthentication, http.StatusUnauthorized, "unauthenticated", false},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", false},
	{service.ErrAccountNotFound, http.StatusUnauthorized, "unauthenticated", false},
	{service.ErrPermissionDenied, http.StatusForbidden, "permission_denied", false},
	{service.ErrNotFound, http.StatusNotFound, "not_found", true},
	{service.ErrAlreadyExists, http.StatusConflict, "already_exists", true},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, "resource_exhausted", false},
	{context.Canceled, StatusClientClosedRequest, "canceled", false},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", false},
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - неизвестная ошибка (сбой хранилища, ErrInternal) - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if stderrors.Is(err, m.target) {
				msg := m.target.Error()
				if m.detailed {
					msg = detail(err, m.target)
				}

				return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: msg}}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// detail возвращает текст после "<сентинел>: " или сам сентинел.
func detail(err, target error) string {
	msg, prefix := err.Error(), target.Error()+": "
	if i := strings.Index(msg, prefix); i >= 0 {
		if d := strings.TrimSpace(msg[i+len(prefix):]); d != "" {
			return d
		}
	}

	return target.Error()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из контекста или заголовка.
// 5xx логируются с исходной ошибкой.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	rid := logctx.RequestID(r.Context())
	if rid == "" {
		rid = r.Header.Get("X-Request-Id")
	}
	resp.Error.RequestID = rid

	if status >= http.StatusInternalServerError {
		logctx.From(r.Context()).Error("request_failed", "status", status, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
