package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testAlert() Alert {
	return Alert{
		Kind:      KindStopLoss,
		Symbol:    "ETH",
		Price:     decimal.NewFromFloat(1.5),
		Threshold: decimal.NewFromInt(2),
		At:        time.Now(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "stop-loss") {
		t.Fatalf("text 应包含 stop-loss: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("webhook notify failed: %v", err)
	}
	if payload["text"] == "" {
		t.Fatal("webhook payload must carry a text field")
	}
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err == nil {
		t.Fatal("5xx must surface as an error")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(ctx context.Context, alert Alert) error {
	s.calls++
	return s.err
}

func TestMultiNotifierContinuesPastFailure(t *testing.T) {
	broken := &stubNotifier{err: errors.New("down")}
	healthy := &stubNotifier{}

	multi := NewMultiNotifier(testLogger(), broken, healthy)
	err := multi.Notify(context.Background(), testAlert())

	if err == nil {
		t.Fatal("first channel error must be reported")
	}
	if healthy.calls != 1 {
		t.Fatalf("healthy channel must still be attempted, calls=%d", healthy.calls)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
