package infra

import (
	"fmt"
	"net/smtp"
	"strings"

	"ventafacil/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends closing reports over SMTP. Without SMTP_HOST it is
// unconfigured and callers skip it.
type Mailer struct {
	host string
	addr string
	from string
	auth smtp.Auth
}

func NewMailer(cfg *config.Config) *Mailer {
	m := &Mailer{
		host: cfg.SMTPHost,
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from: cfg.SMTPUser,
	}
	if cfg.BusinessName != "" && cfg.SMTPUser != "" {
		m.from = fmt.Sprintf("%s <%s>", cfg.BusinessName, cfg.SMTPUser)
	}
	// Local relays (mailhog and the like) accept unauthenticated mail.
	if cfg.SMTPUser != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return m
}

// Configured reports whether an SMTP host was set.
func (m *Mailer) Configured() bool { return m.host != "" }

// SendCorte mails a closing report with its PDF attached. to may hold
// several comma-separated addresses.
func (m *Mailer) SendCorte(to, subject, body, pdfPath string) error {
	recipients := splitAddresses(to)
	if len(recipients) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = recipients
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}
	return e.Send(m.addr, m.auth)
}

func splitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
