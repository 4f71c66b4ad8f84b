package service

import "errors"

// Виды ошибок. Каждая конкретная ошибка ниже оборачивает ровно один вид,
// поэтому errors.Is(err, ErrConflict) и errors.Is(err, ErrEmailTaken) истинны одновременно.
var (
	// ErrValidation: некорректный ввод; состояние не менялось. HTTP 400.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: нарушение уникальности. HTTP 409.
	ErrConflict = errors.New("conflict")
	// ErrAuthentication: неверные учётные данные или недействительный токен. HTTP 401.
	ErrAuthentication = errors.New("authentication failed")
	// ErrStorage: хранилище недоступно. HTTP 503.
	ErrStorage = errors.New("storage unavailable")
	// ErrDelivery: почтовый транспорт не доставил письмо. HTTP 502.
	ErrDelivery = errors.New("delivery failed")
)

// Error: ошибка домена с сообщением, безопасным для клиента.
type Error struct {
	msg  string
	kind error
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

// Kind возвращает вид ошибки.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, msg string) *Error {
	return &Error{msg: msg, kind: kind}
}

var (
	// ErrInvalidInput: обязательное поле пустое.
	ErrInvalidInput = newError(ErrValidation, "invalid input")
	// ErrEmailTaken: e-mail уже занят.
	ErrEmailTaken = newError(ErrConflict, "user already exists")
	// ErrUsernameTaken: username уже занят.
	ErrUsernameTaken = newError(ErrConflict, "username already taken")
	// ErrInvalidCredentials: одинаковое сообщение для неизвестного e-mail,
	// неверного пароля и неактивного пользователя.
	ErrInvalidCredentials = newError(ErrAuthentication, "invalid email or password")
	// ErrInvalidToken: refresh-токен недействителен: подпись, срок, реестр или отзыв.
	// Какая именно проверка не прошла, клиенту не сообщается.
	ErrInvalidToken = newError(ErrAuthentication, "invalid refresh token")
	// ErrInvalidAccessToken: access-токен недействителен или истёк.
	ErrInvalidAccessToken = newError(ErrAuthentication, "invalid or expired access token")
	// ErrAccountDisabled: пользователь деактивирован.
	ErrAccountDisabled = newError(ErrAuthentication, "account is disabled")
	// ErrIDTokenRequired: ID-токен не передан, а вход по e-mail выключен.
	ErrIDTokenRequired = newError(ErrValidation, "idToken is required")
	// ErrInvalidIDToken: ID-токен Google не прошёл проверку.
	ErrInvalidIDToken = newError(ErrValidation, "invalid google id token")
	// ErrIDTokenNoEmail: в ID-токене нет e-mail.
	ErrIDTokenNoEmail = newError(ErrValidation, "google token does not contain an email")
)

// PublicMessage возвращает сообщение для клиента, если err является ошибкой домена.
func PublicMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.msg, true
	}

	return "", false
}
