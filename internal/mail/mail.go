// mail: отправка писем пользователям (одноразовые коды подтверждения).
package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
)

var (
	// ErrNotConfigured: не заданы учётные данные SMTP.
	ErrNotConfigured = errors.New("email transport is not configured")
	// ErrInvalidAddress: адрес отправителя или получателя некорректен.
	ErrInvalidAddress = errors.New("invalid email address")
	// ErrSend: SMTP-сервер отверг соединение, аутентификацию или письмо.
	ErrSend = errors.New("email send failed")
)

// Message: письмо в транспортно-независимом виде.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender отправляет письма.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OTPMessage формирует письмо с кодом подтверждения.
func OTPMessage(appName, to, code string, ttl time.Duration) Message {
	minutes := int(ttl / time.Minute)
	text := fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.", appName, code, minutes)

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your %s verification code", appName),
		Text:    text,
		HTML: fmt.Sprintf("<p>Your %s verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
			html.EscapeString(appName), html.EscapeString(code), minutes),
	}
}

// NormalizeUser убирает окружающие кавычки и пробелы.
func NormalizeUser(raw string) string {
	return strings.TrimSpace(trimQuotes(raw))
}

// NormalizePassword убирает окружающие кавычки и все пробельные символы:
// пароли приложений Google часто копируют в виде "abcd efgh ijkl mnop".
func NormalizePassword(raw string) string {
	return strings.Join(strings.Fields(trimQuotes(raw)), "")
}

func trimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
