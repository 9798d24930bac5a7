package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/config"
)

const (
	defaultMaxRetries  = 3
	defaultSMTPTimeout = 30 * time.Second
)

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer は net/smtp でプレーンテキストのメールを送信します。Host が未設定の場合は送信をスキップします。
type SMTPMailer struct {
	cfg        config.SMTPConfig
	logger     *slog.Logger
	send       sendMailFunc
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
}

// NewSMTPMailer は SMTPMailer を生成します。
func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	m := &SMTPMailer{
		cfg:        cfg,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    time.Second,
		timeout:    timeout,
	}
	m.send = m.dialAndSend
	return m
}

// SendMail は to 宛にメールを送信します。失敗時は指数バックオフで再送します。
func (m *SMTPMailer) SendMail(ctx context.Context, to, subject, body string) error {
	if m.cfg.Host == "" {
		m.logger.WarnContext(ctx, "SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("notifier: header values must not contain line breaks")
	}

	message := []byte(m.compose(to, subject, body))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		err := m.send(ctx, addr, auth, m.cfg.From, []string{to}, message)
		if err == nil {
			m.logger.InfoContext(ctx, "email sent", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		m.logger.ErrorContext(ctx, "failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", m.maxRetries,
			"error", err,
		)

		if attempt < m.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.backoff << (attempt - 1)):
			}
		}
	}

	return fmt.Errorf("notifier: send email after %d attempts: %w", m.maxRetries, lastErr)
}

// dialAndSend は smtp.SendMail と同じ手順で送信しますが、接続と全体の入出力に timeout を課します。
func (m *SMTPMailer) dialAndSend(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	dialer := net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(m.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *SMTPMailer) compose(to, subject, body string) string {
	var b strings.Builder
	if m.cfg.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
