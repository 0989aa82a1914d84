package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestMailer(t *testing.T, cfg config.SMTPConfig) (*SMTPMailer, *capturedMail) {
	t.Helper()
	if cfg.From == "" {
		cfg.From = "PeakRent <no-reply@peakrent.test>"
	}
	m, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	captured := &capturedMail{}
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr, captured.auth, captured.from, captured.to, captured.msg = addr, a, from, to, string(msg)
		return nil
	}
	return m, captured
}

func sampleOrder() OrderEmail {
	return OrderEmail{
		CustomerName: "Ana",
		Reference:    "ORD-20240115-ABC123",
		Items: []OrderEmailItem{
			{Name: "Race Ski 170", Quantity: 1, StartsOn: "2024-01-20", EndsOn: "2024-01-22", LineTotal: "60.00 EUR"},
		},
		Subtotal: "60.00 EUR",
		Discount: "12.00 EUR",
		Total:    "48.00 EUR",
	}
}

func TestRenderTemplates(t *testing.T) {
	m, _ := newTestMailer(t, config.SMTPConfig{})
	for _, name := range []string{TemplateOrderCreated, TemplateOrderPaid, TemplateOrderPaymentFailed, TemplateOrderCancelled} {
		body, err := m.Render(name, sampleOrder())
		require.NoError(t, err, name)
		assert.Contains(t, body, "ORD-20240115-ABC123", name)
		assert.Contains(t, body, "Hi Ana", name)
	}

	body, err := m.Render(TemplateOrderCreated, sampleOrder())
	require.NoError(t, err)
	assert.Contains(t, body, "Race Ski 170")
	assert.Contains(t, body, "Discount: -12.00 EUR")

	_, err = m.Render("missing", sampleOrder())
	assert.Error(t, err)
}

func TestSendDeliversOverSMTP(t *testing.T) {
	m, captured := newTestMailer(t, config.SMTPConfig{Host: "smtp.test", Port: 2525, Username: "user", Password: "pw"})

	err := m.Send(context.Background(), Message{
		To:       "ana@example.com",
		Subject:  "Your PeakRent order",
		Template: TemplateOrderPaid,
		Data:     sampleOrder(),
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:2525", captured.addr)
	assert.NotNil(t, captured.auth)
	assert.Equal(t, "no-reply@peakrent.test", captured.from)
	assert.Equal(t, []string{"ana@example.com"}, captured.to)
	assert.Contains(t, captured.msg, "Subject: Your PeakRent order\r\n")
	assert.Contains(t, captured.msg, "Content-Type: text/html")
	assert.Contains(t, captured.msg, "48.00 EUR")
}

func TestSendWithoutHostSkipsDelivery(t *testing.T) {
	m, captured := newTestMailer(t, config.SMTPConfig{})
	require.NoError(t, m.Send(context.Background(), Message{To: "ana@example.com", Subject: "x", Template: TemplateOrderCancelled, Data: sampleOrder()}))
	assert.Empty(t, captured.addr)
}

func TestSendValidates(t *testing.T) {
	m, _ := newTestMailer(t, config.SMTPConfig{Host: "smtp.test"})
	ctx := context.Background()

	assert.Error(t, m.Send(ctx, Message{To: "not-an-address", Subject: "x", Template: TemplateOrderPaid, Data: sampleOrder()}))
	assert.Error(t, m.Send(ctx, Message{To: "ana@example.com", Subject: "x\r\nBcc: evil@example.com", Template: TemplateOrderPaid, Data: sampleOrder()}))

	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }
	assert.ErrorContains(t, m.Send(ctx, Message{To: "ana@example.com", Subject: "x", Template: TemplateOrderPaid, Data: sampleOrder()}), "connection refused")
}

func TestNewRejectsBadFrom(t *testing.T) {
	_, err := New(config.SMTPConfig{From: "nope"}, nil)
	assert.Error(t, err)
}
