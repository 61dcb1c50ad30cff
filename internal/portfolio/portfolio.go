package portfolio

import (
	"math"

	"github.com/shopspring/decimal"

	"hodlwatch/internal/config"
)

// Lot is one normalized cost-basis entry.
type Lot struct {
	Quantity decimal.Decimal
	CostUSD  decimal.Decimal
	Price    decimal.Decimal
	Date     string
}

// Position aggregates the cost-basis model with an optional live quantity
// override. Recomputed every tick.
type Position struct {
	LotCount         int
	TotalQuantity    decimal.Decimal
	TotalInvestedUSD decimal.Decimal
	AverageCost      *decimal.Decimal
}

// NormalizeLots converts raw config entries into lots. An entry needs a
// finite positive price plus one of qty or usd; the missing side is derived.
// Invalid entries are dropped, never reported: normalization is total.
func NormalizeLots(entries []config.LotConfig) []Lot {
	lots := make([]Lot, 0, len(entries))
	for _, e := range entries {
		if !isFinitePositive(e.Price) {
			continue
		}
		price := decimal.NewFromFloat(e.Price)

		var qty, usd decimal.Decimal
		switch {
		case isFinitePositive(e.Qty):
			qty = decimal.NewFromFloat(e.Qty)
			usd = qty.Mul(price)
		case isFinitePositive(e.USD):
			usd = decimal.NewFromFloat(e.USD)
			qty = usd.Div(price)
		default:
			continue
		}

		lots = append(lots, Lot{Quantity: qty, CostUSD: usd, Price: price, Date: e.Date})
	}
	return lots
}

// BuildPosition derives the position from lots, preferring a positive live
// quantity over the configured lot total.
func BuildPosition(lots []Lot, liveQuantity *decimal.Decimal) Position {
	var totalQty, totalUSD decimal.Decimal
	for _, lot := range lots {
		totalQty = totalQty.Add(lot.Quantity)
		totalUSD = totalUSD.Add(lot.CostUSD)
	}

	pos := Position{
		LotCount:         len(lots),
		TotalQuantity:    totalQty,
		TotalInvestedUSD: totalUSD,
	}

	if liveQuantity != nil && liveQuantity.Sign() > 0 {
		pos.TotalQuantity = *liveQuantity
	}

	if pos.TotalQuantity.Sign() > 0 {
		avg := totalUSD.Div(pos.TotalQuantity)
		pos.AverageCost = &avg
	}

	return pos
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
