package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"hodlwatch/internal/metrics"
)

// Renderer consumes one snapshot per tick.
type Renderer interface {
	Render(snap metrics.Snapshot, status string)
}

// Console prints the dashboard to a writer, one block per tick. It performs
// no I/O beyond the writer and never reads back into the core.
type Console struct {
	out    io.Writer
	symbol string
}

// NewConsole builds a console renderer for the given asset symbol.
func NewConsole(out io.Writer, symbol string) *Console {
	return &Console{out: out, symbol: strings.ToUpper(symbol)}
}

// Render writes the snapshot as a tab-aligned block.
func (c *Console) Render(snap metrics.Snapshot, status string) {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "%s\t%s %s\t%s\n",
		snap.At.UTC().Format(time.RFC3339),
		c.symbol,
		money(snap.Price, 2),
		arrow(snap.Direction),
	)
	fmt.Fprintf(w, "1h: %s\t24h: %s\thigh24: %s\tlow24: %s\n",
		percent(snap.Delta1h),
		percent(snap.Delta24h),
		money(snap.High24, 2),
		money(snap.Low24, 2),
	)
	fmt.Fprintf(w, "qty: %s\tvalue: %s\tpnl: %s (%s)\tvs avg: %s\n",
		snap.Position.TotalQuantity.StringFixed(4),
		money(snap.PositionValue, 2),
		money(snap.PnLUSD, 2),
		percent(snap.PnLPct),
		percent(snap.DeltaFromAvgCostPct),
	)
	if snap.StopLossDistPct != nil || snap.TakeProfitDistPct != nil {
		fmt.Fprintf(w, "to stop: %s\tto target: %s\n",
			percent(snap.StopLossDistPct),
			percent(snap.TakeProfitDistPct),
		)
	}
	if status != "" {
		fmt.Fprintf(w, "status: %s\n", status)
	}
	w.Flush()
}

func arrow(d metrics.Direction) string {
	switch d {
	case metrics.DirectionPositive:
		return "▲"
	case metrics.DirectionNegative:
		return "▼"
	default:
		return "·"
	}
}

func money(v *decimal.Decimal, places int32) string {
	if v == nil {
		return "—"
	}
	return "$" + v.StringFixed(places)
}

func percent(v *decimal.Decimal) string {
	if v == nil {
		return "—"
	}
	return v.StringFixed(2) + "%"
}

var _ Renderer = (*Console)(nil)
