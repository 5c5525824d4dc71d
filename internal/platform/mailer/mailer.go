// Package mailer delivers account mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/retry"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// BaseURL is the public API origin used in activation links,
	// e.g. "https://stores.example.com".
	BaseURL string
	// ResetURL is the frontend page that takes a reset code. Empty means the
	// reset mail carries the code only.
	ResetURL string
	TokenTTL time.Duration
}

type Mailer struct {
	sender   Sender
	from     string
	baseURL  string
	resetURL string
	ttl      time.Duration
	log      *zap.Logger
}

// New returns an SMTP mailer. With no host configured, messages are only
// logged.
func New(cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("mailer")

	var sender Sender
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, mail will be logged instead of sent")
		sender = logSender{log: log}
	} else {
		sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return NewWithSender(sender, cfg, log)
}

func NewWithSender(sender Sender, cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Mailer{
		sender:   sender,
		from:     cfg.From,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		resetURL: cfg.ResetURL,
		ttl:      cfg.TokenTTL,
		log:      log,
	}
}

func (m *Mailer) SendActivation(ctx context.Context, email, name, token string) error {
	link := m.link(m.baseURL+"/api/v1/auth/verify", token)
	body, err := render(activationTmpl, activationData{Name: name, Link: link, TTL: m.ttl.String()})
	if err != nil {
		return retry.Permanent(err)
	}
	text := fmt.Sprintf("Hi %s,\n\nActivate your account: %s\n\nThis link expires in %s.", name, link, m.ttl)
	return m.send(ctx, email, "Activate your Stores Finder account", text, body)
}

func (m *Mailer) SendResetToken(ctx context.Context, email, name, token string) error {
	var link string
	if m.resetURL != "" {
		link = m.link(m.resetURL, token)
	}
	body, err := render(resetTmpl, resetData{Name: name, Token: token, Link: link, TTL: m.ttl.String()})
	if err != nil {
		return retry.Permanent(err)
	}
	text := fmt.Sprintf("Hi %s,\n\nYour password reset code: %s\n", name, token)
	if link != "" {
		text += fmt.Sprintf("Or open: %s\n", link)
	}
	text += fmt.Sprintf("\nThe code expires in %s.", m.ttl)
	return m.send(ctx, email, "Reset your password", text, body)
}

func (m *Mailer) NotifyPasswordChanged(ctx context.Context, email, name string) error {
	body, err := render(changedTmpl, changedData{Name: name})
	if err != nil {
		return retry.Permanent(err)
	}
	text := fmt.Sprintf("Hi %s,\n\nThe password of your account was just changed.", name)
	return m.send(ctx, email, "Your password was changed", text, body)
}

// link appends the token to base, keeping any query base already has.
func (m *Mailer) link(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		m.log.Warn("bad link base", zap.String("base", base), zap.Error(err))
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (m *Mailer) send(ctx context.Context, to, subject, text, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html)

	if err := m.sender.DialAndSend(msg); err != nil {
		m.log.Error("send mail", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("send %q: %w", subject, err)
	}
	m.log.Debug("mail sent", zap.String("subject", subject))
	return nil
}

type logSender struct {
	log *zap.Logger
}

func (s logSender) DialAndSend(msgs ...*gomail.Message) error {
	for _, msg := range msgs {
		s.log.Info("mail (not sent)",
			zap.Strings("to", msg.GetHeader("To")),
			zap.Strings("subject", msg.GetHeader("Subject")))
	}
	return nil
}
