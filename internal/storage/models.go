package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is one persisted price observation. The audit trail is
// write-only at runtime; only the show/export commands read it back.
type PriceSample struct {
	At        time.Time
	Price     decimal.Decimal
	Source    string
	CreatedAt time.Time
}

// AlertEvent captures an emitted alert for auditing.
type AlertEvent struct {
	ID        int64
	FiredAt   time.Time
	Kind      string
	Price     decimal.Decimal
	Threshold decimal.Decimal
	CreatedAt time.Time
}
