// Package metrics turns the cached market state into the snapshot the
// dashboard renders. Compute is a pure function: identical inputs yield
// identical snapshots and nothing is mutated.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"hodlwatch/internal/buffer"
	"hodlwatch/internal/portfolio"
)

// Direction labels the latest price movement.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// Inputs collects everything the engine reads. Stats carries the
// authoritative 24h extremes when the stats provider has delivered them.
type Inputs struct {
	Now          time.Time
	CurrentPrice *decimal.Decimal
	Buffer       *buffer.Buffer
	Position     portfolio.Position
	Stats        buffer.MinMax
	StopLoss     *decimal.Decimal
	TakeProfit   *decimal.Decimal
}

// Snapshot is the rendered view of the portfolio. Nil fields are
// unavailable and rendered as such, never as zero.
type Snapshot struct {
	At                  time.Time
	Price               *decimal.Decimal
	Direction           Direction
	Delta1h             *decimal.Decimal
	Delta24h            *decimal.Decimal
	High24              *decimal.Decimal
	Low24               *decimal.Decimal
	Position            portfolio.Position
	PositionValue       *decimal.Decimal
	PnLUSD              *decimal.Decimal
	PnLPct              *decimal.Decimal
	DeltaFromAvgCostPct *decimal.Decimal
	StopLossDistPct     *decimal.Decimal
	TakeProfitDistPct   *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Compute derives the snapshot for one tick.
func Compute(in Inputs) Snapshot {
	snap := Snapshot{
		At:        in.Now,
		Price:     in.CurrentPrice,
		Direction: direction(in),
		Position:  in.Position,
	}

	if in.Buffer != nil {
		snap.Delta1h = in.Buffer.PercentChangeSince(in.Now, time.Hour)
		snap.Delta24h = in.Buffer.PercentChangeSince(in.Now, 24*time.Hour)

		window := in.Buffer.MinMaxSince(in.Now, 24*time.Hour)
		snap.High24 = pick(in.Stats.High, window.High)
		snap.Low24 = pick(in.Stats.Low, window.Low)
	}

	if in.CurrentPrice != nil {
		value := in.Position.TotalQuantity.Mul(*in.CurrentPrice)
		snap.PositionValue = &value

		pnl := value.Sub(in.Position.TotalInvestedUSD)
		snap.PnLUSD = &pnl

		if in.Position.TotalInvestedUSD.Sign() > 0 {
			pct := pnl.Div(in.Position.TotalInvestedUSD).Mul(hundred)
			snap.PnLPct = &pct
		}

		if avg := in.Position.AverageCost; avg != nil && avg.Sign() > 0 {
			delta := in.CurrentPrice.Sub(*avg).Div(*avg).Mul(hundred)
			snap.DeltaFromAvgCostPct = &delta
		}

		snap.StopLossDistPct = targetDistance(*in.CurrentPrice, in.StopLoss)
		snap.TakeProfitDistPct = targetDistance(*in.CurrentPrice, in.TakeProfit)
	}

	return snap
}

// targetDistance is (threshold/price - 1) * 100, nil when either side is
// unusable.
func targetDistance(price decimal.Decimal, threshold *decimal.Decimal) *decimal.Decimal {
	if threshold == nil || threshold.Sign() <= 0 || price.Sign() <= 0 {
		return nil
	}
	dist := threshold.Div(price).Sub(decimal.NewFromInt(1)).Mul(hundred)
	return &dist
}

func direction(in Inputs) Direction {
	if in.CurrentPrice == nil {
		return DirectionNeutral
	}
	var prev *buffer.Sample
	if in.Buffer != nil {
		prev = in.Buffer.Prev()
	}
	if prev == nil {
		return DirectionNeutral
	}
	// an unchanged price counts as positive; neutral is reserved for the
	// undefined cases above
	if in.CurrentPrice.LessThan(prev.Price) {
		return DirectionNegative
	}
	return DirectionPositive
}

func pick(primary, fallback *decimal.Decimal) *decimal.Decimal {
	if primary != nil {
		return primary
	}
	return fallback
}
