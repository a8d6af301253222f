package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/mailersend/mailersend-go"
)

// Channel delivers one rendered email. Implementations must honour ctx.
type Channel interface {
	Name() string
	Send(ctx context.Context, to, subject, text, html string) error
}

// SMTPChannel talks to a plain SMTP relay. STARTTLS is used when the server
// offers it; UseTLS dials with implicit TLS (port 465 style).
type SMTPChannel struct {
	Host     string
	Port     int
	From     string
	FromName string
	User     string
	Pass     string
	UseTLS   bool
}

func NewSMTPChannel(cfg config.EmailConfig) *SMTPChannel {
	return &SMTPChannel{
		Host:     strings.TrimSpace(cfg.SMTPHost),
		Port:     cfg.SMTPPort,
		From:     strings.TrimSpace(cfg.From),
		FromName: cfg.FromName,
		User:     strings.TrimSpace(cfg.SMTPUser),
		Pass:     strings.TrimSpace(cfg.SMTPPass),
		UseTLS:   cfg.SMTPUseTLS,
	}
}

func (s *SMTPChannel) Name() string { return "smtp" }

func (s *SMTPChannel) Send(ctx context.Context, to, subject, text, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("empty recipient email")
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if s.UseTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: s.Host})
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if !s.UseTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.User, s.Pass, s.Host)); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(s.message(to, subject, text, html)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPChannel) message(to, subject, text, html string) []byte {
	var buf bytes.Buffer
	boundary := "parcel-otp-boundary"
	from := s.From
	if s.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.FromName, s.From)
	}
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

// MailerSendChannel sends through the MailerSend HTTP API.
type MailerSendChannel struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendChannel(apiKey, fromName, fromEmail string) *MailerSendChannel {
	return &MailerSendChannel{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}
}

func (m *MailerSendChannel) Name() string { return "mailersend" }

func (m *MailerSendChannel) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: to}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// StubChannel writes the message to the log and always succeeds. It is the
// last link of every chain and the only link for phone contacts.
type StubChannel struct{}

func (StubChannel) Name() string { return "stub" }

func (StubChannel) Send(ctx context.Context, to, subject, text, html string) error {
	logger.InfoContext(ctx, "otp delivered by stub channel", "to", to, "subject", subject, "body", text)
	return nil
}

// Channels builds the configured email channels in priority order.
func Channels(cfg config.EmailConfig) []Channel {
	var channels []Channel
	if cfg.SMTPHost != "" {
		channels = append(channels, NewSMTPChannel(cfg))
	}
	if cfg.MailerSendKey != "" && cfg.From != "" {
		channels = append(channels, NewMailerSendChannel(cfg.MailerSendKey, cfg.FromName, cfg.From))
	}
	return channels
}

// DeliveryResult names the channel that took the code.
type DeliveryResult struct {
	Channel  string
	Fallback bool
}

// DeliveryChain tries each email channel once, in order, and falls through
// to the stub. Deliver never fails.
type DeliveryChain struct {
	channels []Channel
	stub     Channel
	timeout  time.Duration
}

func NewDeliveryChain(timeout time.Duration, channels ...Channel) *DeliveryChain {
	return &DeliveryChain{channels: channels, stub: StubChannel{}, timeout: timeout}
}

// WithStub replaces the terminal channel.
func (d *DeliveryChain) WithStub(stub Channel) *DeliveryChain {
	d.stub = stub
	return d
}

func (d *DeliveryChain) Deliver(ctx context.Context, contact models.Contact, code string, expiresAt time.Time) DeliveryResult {
	subject, text, html := renderOTPEmail(code, expiresAt)

	if contact.IsEmail() {
		for _, ch := range d.channels {
			if err := d.send(ctx, ch, contact.Value, subject, text, html); err != nil {
				logger.WarnContext(ctx, "otp delivery failed", "channel", ch.Name(), "error", err)
				continue
			}
			return DeliveryResult{Channel: ch.Name()}
		}
	}

	if err := d.stub.Send(ctx, contact.Value, subject, text, html); err != nil {
		logger.ErrorContext(ctx, "stub delivery failed", "error", err)
	}
	return DeliveryResult{Channel: d.stub.Name(), Fallback: contact.IsEmail()}
}

func (d *DeliveryChain) send(ctx context.Context, ch Channel, to, subject, text, html string) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return ch.Send(ctx, to, subject, text, html)
}
