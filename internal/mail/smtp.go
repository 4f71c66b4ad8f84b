package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/pribylovaa/bearfit-auth/internal/config"
)

// dialer: часть *gomail.Client, используемая отправителем.
type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSender отправляет письма через SMTP (go-mail).
type SMTPSender struct {
	from   string
	client dialer
}

// NewSMTPSender создаёт отправителя по настройкам из конфигурации.
// Без EMAIL_USER/EMAIL_PASS отправитель создаётся, но каждое Send
// возвращает ErrNotConfigured: сервис стартует и без почты.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	const op = "mail.NewSMTPSender"

	user := NormalizeUser(cfg.User)
	pass := NormalizePassword(cfg.Pass)

	from := NormalizeUser(cfg.From)
	if from == "" {
		from = user
	}

	if user == "" || pass == "" {
		return &SMTPSender{from: from}, nil
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(user),
		gomail.WithPassword(pass),
	}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SMTPSender{from: from, client: client}, nil
}

// Send собирает MIME-письмо (text + html) и отправляет его.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	const op = "mail.SMTPSender.Send"

	if s.client == nil {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	msg, err := s.build(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSend, err)
	}

	return nil
}

func (s *SMTPSender) build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("%w: from: %w", ErrInvalidAddress, err)
	}

	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("%w: to: %w", ErrInvalidAddress, err)
	}

	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	}

	return msg, nil
}
