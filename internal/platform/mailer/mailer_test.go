package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	msgs []*gomail.Message
	err  error
}

func (s *captureSender) DialAndSend(msgs ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func raw(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func newTestMailer(s Sender) *Mailer {
	return NewWithSender(s, Config{From: "no-reply@x.com", BaseURL: "https://stores.test/", TokenTTL: time.Hour}, nil)
}

func TestSendActivationContainsLink(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(s)

	require.NoError(t, m.SendActivation(context.Background(), "ana@x.com", "Ana", "abc123"))
	require.Len(t, s.msgs, 1)

	msg := s.msgs[0]
	assert.Equal(t, []string{"ana@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"no-reply@x.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"Activate your Stores Finder account"}, msg.GetHeader("Subject"))
	assert.Contains(t, raw(t, msg), "multipart/alternative")
	assert.Equal(t, "https://stores.test/api/v1/auth/verify?token=abc123",
		m.link(m.baseURL+"/api/v1/auth/verify", "abc123"))
}

func TestResetMailWithoutFrontendCarriesCodeOnly(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(s)

	require.NoError(t, m.SendResetToken(context.Background(), "ana@x.com", "Ana", "code42"))
	require.Len(t, s.msgs, 1)

	body := raw(t, s.msgs[0])
	assert.Contains(t, body, "code42")
	assert.NotContains(t, body, "href")
	assert.NotContains(t, body, "/reset-password")
}

func TestResetMailLinksToFrontend(t *testing.T) {
	s := &captureSender{}
	m := NewWithSender(s, Config{
		From:     "no-reply@x.com",
		BaseURL:  "https://api.stores.test",
		ResetURL: "https://stores.test/account/reset?lang=fr",
		TokenTTL: time.Hour,
	}, nil)

	require.NoError(t, m.SendResetToken(context.Background(), "ana@x.com", "Ana", "code42"))
	require.Len(t, s.msgs, 1)
	assert.Equal(t, "https://stores.test/account/reset?lang=fr&token=code42",
		m.link("https://stores.test/account/reset?lang=fr", "code42"))

	html, err := render(resetTmpl, resetData{Name: "Ana", Token: "code42", Link: m.link(m.resetURL, "code42")})
	require.NoError(t, err)
	assert.Contains(t, html, `href="https://stores.test/account/reset?lang=fr&amp;token=code42"`)
}

func TestSendResetTokenAndChangeNotice(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(s)
	ctx := context.Background()

	require.NoError(t, m.SendResetToken(ctx, "ana@x.com", "Ana", "tok"))
	require.NoError(t, m.NotifyPasswordChanged(ctx, "ana@x.com", "Ana"))
	require.Len(t, s.msgs, 2)
	assert.Equal(t, []string{"Reset your password"}, s.msgs[0].GetHeader("Subject"))
	assert.Equal(t, []string{"Your password was changed"}, s.msgs[1].GetHeader("Subject"))
}

func TestSendFailureIsReturned(t *testing.T) {
	m := newTestMailer(&captureSender{err: errors.New("smtp down")})

	err := m.SendActivation(context.Background(), "ana@x.com", "Ana", "abc123")
	assert.ErrorContains(t, err, "smtp down")
}

func TestCancelledContextSkipsSend(t *testing.T) {
	s := &captureSender{}
	m := newTestMailer(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.NotifyPasswordChanged(ctx, "ana@x.com", "Ana"), context.Canceled)
	assert.Empty(t, s.msgs)
}
