package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"github.com/pribylovaa/bearfit-auth/internal/config"
)

// fakeDialer запоминает отправленные письма вместо реального SMTP.
type fakeDialer struct {
	sent []*gomail.Msg
	err  error
}

func (f *fakeDialer) DialAndSendWithContext(_ context.Context, msgs ...*gomail.Msg) error {
	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, msgs...)
	return nil
}

func TestOTPMessage(t *testing.T) {
	t.Parallel()

	m := OTPMessage("Bearfit", "b@x.com", "12345", 5*time.Minute)

	require.Equal(t, "b@x.com", m.To)
	require.Equal(t, "Your Bearfit verification code", m.Subject)
	require.Equal(t, "Your Bearfit verification code is 12345. It expires in 5 minutes.", m.Text)
	require.Equal(t, "<p>Your Bearfit verification code is <strong>12345</strong>. It expires in 5 minutes.</p>", m.HTML)
}

func TestNormalizeCredentials(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bot@gmail.com", NormalizeUser(`"bot@gmail.com"`))
	require.Equal(t, "bot@gmail.com", NormalizeUser("  bot@gmail.com \n"))
	require.Equal(t, "abcdefghijklmnop", NormalizePassword(`"abcd efgh ijkl mnop"`))
	require.Equal(t, "abcd", NormalizePassword("a b\tc\nd"))
	require.Empty(t, NormalizePassword(`""`))
}

func TestNewSMTPSender_NotConfigured(t *testing.T) {
	t.Parallel()

	s, err := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Pass: `"  "`})
	require.NoError(t, err)

	err = s.Send(context.Background(), OTPMessage("Bearfit", "b@x.com", "12345", 5*time.Minute))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewSMTPSender_Configured(t *testing.T) {
	t.Parallel()

	s, err := NewSMTPSender(config.MailConfig{
		Host: "smtp.example.com", Port: 465, Secure: true,
		User: `"bot@example.com"`, Pass: "app pass",
	})
	require.NoError(t, err)
	require.NotNil(t, s.client)
	require.Equal(t, "bot@example.com", s.from, "без EMAIL_FROM отправителем становится пользователь SMTP")
}

func TestSMTPSender_Send_BuildsMIME(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	s := &SMTPSender{from: "noreply@bearfit.app", client: d}

	err := s.Send(context.Background(), OTPMessage("Bearfit", "b@x.com", "54321", 5*time.Minute))
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	rcpt, err := msg.GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"b@x.com"}, rcpt)
	require.Equal(t, []string{"Your Bearfit verification code"}, msg.GetGenHeader(gomail.HeaderSubject))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "54321")
	require.Contains(t, buf.String(), "text/html")
}

func TestSMTPSender_Send_InvalidRecipient(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	s := &SMTPSender{from: "noreply@bearfit.app", client: d}

	err := s.Send(context.Background(), Message{To: "not an address", Subject: "x", Text: "x"})
	require.ErrorIs(t, err, ErrInvalidAddress)
	require.Empty(t, d.sent)
}

func TestSMTPSender_Send_TransportError(t *testing.T) {
	t.Parallel()

	cause := errors.New("535 authentication failed")
	s := &SMTPSender{from: "noreply@bearfit.app", client: &fakeDialer{err: cause}}

	err := s.Send(context.Background(), OTPMessage("Bearfit", "b@x.com", "12345", 5*time.Minute))
	require.ErrorIs(t, err, ErrSend)
	require.ErrorIs(t, err, cause)
}
