package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestStatsFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "ETHUSDT" {
			t.Fatalf("unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"highPrice": "3200.50",
			"lowPrice":  "2900.25",
		})
	}))
	defer srv.Close()

	f := NewStatsFetcher(srv.URL, "ETHUSDT", time.Second, zerolog.Nop())
	stats, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("stats fetch failed: %v", err)
	}
	if stats.High.Cmp(decimal.NewFromFloat(3200.50)) != 0 {
		t.Fatalf("expected high 3200.50, got %s", stats.High)
	}
	if stats.Low.Cmp(decimal.NewFromFloat(2900.25)) != 0 {
		t.Fatalf("expected low 2900.25, got %s", stats.Low)
	}
}

func TestStatsFetcherRejectsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"highPrice": "0", "lowPrice": "10"})
	}))
	defer srv.Close()

	f := NewStatsFetcher(srv.URL, "ETHUSDT", time.Second, zerolog.Nop())
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("zero high must be rejected")
	}
}
