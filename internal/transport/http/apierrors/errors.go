// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимается ошибка домена (service, otp, google), на выход:
//   - HTTP-статус по виду ошибки;
//   - короткий стабильный код для клиента;
//   - безопасное сообщение без утечки деталей хранилища.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/bearfit-auth/internal/google"
	"github.com/pribylovaa/bearfit-auth/internal/otp"
	"github.com/pribylovaa/bearfit-auth/internal/service"
)

// StatusClientClosedRequest: нестандартный код для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError: единый формат ошибки для клиента.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse: корневой объект ответа.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// InputError: ошибка разбора или проверки запроса на транспорте.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

// Invalid создаёт ошибку валидации запроса с сообщением для клиента.
func Invalid(msg string) error {
	return &InputError{msg: msg}
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело ответа.
//
// Порядок проверок важен: истёкший дедлайн внутри хранилища даёт 504,
// а не 503, поэтому контекстные ошибки проверяются первыми.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

func classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	var in *InputError
	if errors.As(err, &in) {
		return http.StatusBadRequest, "invalid_argument", in.msg
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, service.ErrStorage), errors.Is(err, otp.ErrStorage):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case errors.Is(err, otp.ErrDelivery), errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway, "delivery_failed", "failed to send OTP"
	case errors.Is(err, google.ErrNotConfigured):
		return http.StatusServiceUnavailable, "unavailable", "google sign-in is not configured"
	}

	msg, ok := service.PublicMessage(err)
	if !ok {
		return http.StatusInternalServerError, "internal", "internal error"
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", msg
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "already_exists", msg
	case errors.Is(err, service.ErrAuthentication):
		return http.StatusUnauthorized, "unauthenticated", msg
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteNotFound отвечает 404 в едином формате.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusNotFound, APIError{Code: "not_found", Message: "not found"})
}

// WriteMethodNotAllowed отвечает 405 в едином формате.
func WriteMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
}

// WriteUnauthorized отвечает 401 с заданным сообщением.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, r, http.StatusUnauthorized, APIError{Code: "unauthenticated", Message: msg})
}

// WriteError пишет статус и тело ошибки; request_id берётся из X-Request-Id.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	write(w, r, status, resp.Error)
}

func write(w http.ResponseWriter, r *http.Request, status int, e APIError) {
	// Прокидываем request_id, чтобы клиент мог сослаться на запрос.
	e.RequestID = r.Header.Get("X-Request-Id")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}
