// handlers: REST-обработчики /auth/*: разбор и проверка запроса,
// вызов сервиса, сериализация ответа в формате мобильного клиента.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/service"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
)

// maxBodyBytes: предел размера тела запроса.
const maxBodyBytes = 64 << 10

// AuthService: операции сервиса, нужные обработчикам.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Session, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	RevokeToken(ctx context.Context, refreshToken string) error
	FederatedSignIn(ctx context.Context, in service.FederatedInput) (*models.Session, error)
	FederatedSignInByEmail(ctx context.Context, in service.FederatedInput) (*models.Session, error)
	CompleteFederatedRegistration(ctx context.Context, in service.FederatedInput) (*models.Session, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Principal(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// OTPManager: выпуск и проверка одноразовых кодов.
type OTPManager interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	auth AuthService
	otp  OTPManager
}

// New создаёт обработчики.
func New(auth AuthService, otp OTPManager) *Handlers {
	return &Handlers{auth: auth, otp: otp}
}

// writeJSON: единый JSON-ответ с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict: строгий JSON-декодер: неизвестные поля и хвост после
// объекта запрещены, размер тела ограничен.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierrors.Invalid("request body too large")
		}
		return apierrors.Invalid("invalid JSON body")
	}

	if dec.More() {
		return apierrors.Invalid("invalid JSON body")
	}

	return nil
}
