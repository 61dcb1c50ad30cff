package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hodlwatch/internal/metrics"
)

func TestConsoleRendersSnapshot(t *testing.T) {
	var sb strings.Builder
	c := NewConsole(&sb, "eth")

	price := decimal.NewFromFloat(3050.10)
	value := decimal.NewFromInt(6100)
	snap := metrics.Snapshot{
		At:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Price:         &price,
		Direction:     metrics.DirectionPositive,
		PositionValue: &value,
	}
	c.Render(snap, "binance-ws connected")

	out := sb.String()
	for _, want := range []string{"ETH", "$3050.10", "$6100.00", "binance-ws connected", "▲"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleRendersUnavailableAsPlaceholder(t *testing.T) {
	var sb strings.Builder
	c := NewConsole(&sb, "ETH")
	c.Render(metrics.Snapshot{At: time.Now(), Direction: metrics.DirectionNeutral}, "")

	if !strings.Contains(sb.String(), "—") {
		t.Fatal("unavailable values must render as placeholders, not zeros")
	}
}
