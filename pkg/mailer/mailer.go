package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names shipped with the binary.
const (
	TemplateOrderCreated       = "order_created"
	TemplateOrderPaid          = "order_paid"
	TemplateOrderPaymentFailed = "order_payment_failed"
	TemplateOrderCancelled     = "order_cancelled"
)

// Message is a rendered-on-send transactional email.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer renders embedded html templates and delivers them over SMTP.
// With no host configured it logs the message instead of sending it.
type SMTPMailer struct {
	cfg       config.SMTPConfig
	from      *mail.Address
	templates *template.Template
	send      sendFunc
	logg      *logger.Logger
}

// New parses the embedded templates and validates the sender address.
func New(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPMailer, error) {
	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp from address: %w", err)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return &SMTPMailer{
		cfg:       cfg,
		from:      from,
		templates: tmpl,
		send:      smtp.SendMail,
		logg:      logg,
	}, nil
}

// Render executes the named template.
func (m *SMTPMailer) Render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return errors.New("subject must be a single line")
	}

	body, err := m.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	if strings.TrimSpace(m.cfg.Host) == "" {
		if m.logg != nil {
			m.logg.Info(ctx, fmt.Sprintf("smtp disabled; email %q to %s not sent", msg.Template, to.Address))
		}
		return nil
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	raw := buildMessage(m.from, to, msg.Subject, body)
	if err := m.send(m.cfg.Addr(), auth, m.from.Address, []string{to.Address}, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from, to *mail.Address, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
