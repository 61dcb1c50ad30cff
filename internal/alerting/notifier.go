package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    alert.Title() + "\n" + alert.Body(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("kind", string(alert.Kind)).Msg("告警已发送 (Telegram)")
	return nil
}

// WebhookNotifier posts {"text": ...} to an arbitrary endpoint. Failures are
// reported to the caller, who logs and moves on; a broken webhook never
// blocks the watcher.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier builds a webhook notifier for the given target URL.
func NewWebhookNotifier(url string, timeout time.Duration, logger zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Notify delivers the alert as a JSON text payload.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	payload := map[string]string{
		"text": alert.Title() + ": " + alert.Body(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	n.logger.Info().Str("kind", string(alert.Kind)).Msg("alert delivered (webhook)")
	return nil
}

type multiNotifier struct {
	targets []Notifier
	logger  zerolog.Logger
}

// NewMultiNotifier fans an alert out to every configured channel. Each
// channel fails independently; the first error is returned after all
// channels have been attempted.
func NewMultiNotifier(logger zerolog.Logger, targets ...Notifier) Notifier {
	return &multiNotifier{targets: targets, logger: logger.With().Str("component", "alert_dispatch").Logger()}
}

func (m *multiNotifier) Notify(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, target := range m.targets {
		if err := target.Notify(ctx, alert); err != nil {
			m.logger.Error().Err(err).Str("kind", string(alert.Kind)).Msg("notifier channel failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = (*WebhookNotifier)(nil)
