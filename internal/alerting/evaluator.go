package alerting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes the two threshold alerts.
type Kind string

const (
	KindStopLoss   Kind = "stop_loss"
	KindTakeProfit Kind = "take_profit"
)

// Alert is one emitted threshold crossing.
type Alert struct {
	Kind      Kind
	Symbol    string
	Price     decimal.Decimal
	Threshold decimal.Decimal
	At        time.Time
}

// Title renders the notification headline.
func (a Alert) Title() string {
	if a.Kind == KindStopLoss {
		return fmt.Sprintf("%s stop-loss hit", a.Symbol)
	}
	return fmt.Sprintf("%s take-profit hit", a.Symbol)
}

// Body renders the notification text.
func (a Alert) Body() string {
	verb := "fell to"
	if a.Kind == KindTakeProfit {
		verb = "rose to"
	}
	return fmt.Sprintf("%s %s %s (threshold %s)", a.Symbol, verb, a.Price.StringFixed(2), a.Threshold.StringFixed(2))
}

// Evaluator detects threshold crossings with cooldown suppression. It emits
// at most one alert per evaluation; stop-loss wins when both sides trigger.
// Owned by the service loop, so no locking.
type Evaluator struct {
	symbol      string
	stopLoss    *decimal.Decimal
	takeProfit  *decimal.Decimal
	cooldown    time.Duration
	lastFiredAt time.Time
}

// NewEvaluator builds an evaluator; nil thresholds disable that side.
func NewEvaluator(symbol string, stopLoss, takeProfit *decimal.Decimal, cooldown time.Duration) *Evaluator {
	return &Evaluator{
		symbol:     symbol,
		stopLoss:   stopLoss,
		takeProfit: takeProfit,
		cooldown:   cooldown,
	}
}

// Evaluate checks the price against both thresholds. The cooldown clock
// starts at the moment an alert fires.
func (e *Evaluator) Evaluate(now time.Time, price decimal.Decimal) (Alert, bool) {
	if !e.lastFiredAt.IsZero() && now.Sub(e.lastFiredAt) < e.cooldown {
		return Alert{}, false
	}

	if e.stopLoss != nil && price.LessThanOrEqual(*e.stopLoss) {
		e.lastFiredAt = now
		return Alert{Kind: KindStopLoss, Symbol: e.symbol, Price: price, Threshold: *e.stopLoss, At: now}, true
	}

	if e.takeProfit != nil && price.GreaterThanOrEqual(*e.takeProfit) {
		e.lastFiredAt = now
		return Alert{Kind: KindTakeProfit, Symbol: e.symbol, Price: price, Threshold: *e.takeProfit, At: now}, true
	}

	return Alert{}, false
}
