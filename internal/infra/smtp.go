package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"github.com/gianlucacontedesign/terpenitos/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDeshabilitado is returned when SMTP_HOST is not configured.
var ErrMailerDeshabilitado = errors.New("mailer: SMTP no configurado")

// Mailer sends order e-mails through SMTP. Sends go through a circuit breaker
// so an unreachable server fails fast instead of tying up workers.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.host != "" }

// Estado exposes the breaker state for the health endpoint.
func (m *Mailer) Estado() CBState { return m.cb.State() }

// Send delivers a plain-text e-mail with an optional attachment.
func (m *Mailer) Send(to, subject, body, adjunto string) error {
	if !m.Enabled() {
		return ErrMailerDeshabilitado
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if adjunto != "" {
		if _, err := e.AttachFile(adjunto); err != nil {
			return fmt.Errorf("mailer: adjuntar archivo: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.cb.Execute(func() error { return e.Send(m.addr, auth) })
}
