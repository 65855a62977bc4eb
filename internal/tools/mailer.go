package tools

import (
	"errors"
	"fmt"
	"net/smtp"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ErrMailerNotConfigured is returned when SMTP settings are incomplete.
var ErrMailerNotConfigured = errors.New("smtp not configured")

var (
	emailAddrRe   = regexp.MustCompile(`\b([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})\b`)
	emailTriggers = []string{"envoie", "envoies", "envoyer", "mail", "email", "e-mail", "send"}
)

// DetectEmailCommand reports whether the text asks to email something, e.g.
// "envoie la réponse à alice@example.org", and returns the target address.
func DetectEmailCommand(text string) (string, bool) {
	lower := strings.ToLower(text)
	triggered := false
	for _, k := range emailTriggers {
		if strings.Contains(lower, k) {
			triggered = true
			break
		}
	}
	if !triggered {
		return "", false
	}
	m := emailAddrRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// SMTPConfig holds the settings for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends plain text mail over SMTP with STARTTLS.
type Mailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewMailer creates a mailer. Configuration is validated at send time so an
// unconfigured deployment still starts.
func NewMailer(cfg SMTPConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers a plain text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return ErrMailerNotConfigured
	}
	port := m.cfg.Port
	if port == 0 {
		port = 587
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
