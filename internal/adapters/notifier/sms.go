package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/IshanMadusanka13/Salon-Capta/internal/platform/config"
)

// HTTPSMSSender は SMS ゲートウェイへフォーム POST で送信します。Endpoint が未設定の場合は送信をスキップします。
type HTTPSMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSMSSender は HTTPSMSSender を生成します。client が nil の場合は cfg.Timeout を持つクライアントを使います。
func NewHTTPSMSSender(cfg config.SMSConfig, client *http.Client, logger *slog.Logger) *HTTPSMSSender {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSMSSender{cfg: cfg, client: client, logger: logger}
}

// SendSMS は設定された宛先番号へ text を送信します。
func (s *HTTPSMSSender) SendSMS(ctx context.Context, text string) error {
	if s.cfg.Endpoint == "" {
		s.logger.WarnContext(ctx, "SMS gateway not configured, skipping SMS send")
		return nil
	}

	form := url.Values{}
	form.Set("To", s.cfg.To)
	form.Set("From", s.cfg.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notifier: build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notifier: sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	s.logger.InfoContext(ctx, "sms sent", "to", s.cfg.To, "status", resp.StatusCode)
	return nil
}
