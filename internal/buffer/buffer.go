package buffer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one observed (timestamp, price) point. Immutable once appended.
type Sample struct {
	At    time.Time
	Price decimal.Decimal
}

// MinMax carries windowed extremes; nil means unavailable.
type MinMax struct {
	High *decimal.Decimal
	Low  *decimal.Decimal
}

// Buffer is a bounded, append-only time series of price samples. Oldest
// entries are trimmed once the capacity is exceeded. Not safe for concurrent
// use; the service loop is its single owner.
type Buffer struct {
	samples []Sample
	cap     int
}

// DefaultCapacity matches roughly ten minutes of one-sample-per-second feeds.
const DefaultCapacity = 600

// New creates a buffer with the given capacity. Non-positive capacities fall
// back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{samples: make([]Sample, 0, capacity), cap: capacity}
}

// Append records a sample and trims from the front to stay within capacity.
// Non-positive prices are dropped silently; collaborators send garbage and
// the buffer is deliberately permissive about it.
func (b *Buffer) Append(at time.Time, price decimal.Decimal) {
	if price.Sign() <= 0 {
		return
	}
	b.samples = append(b.samples, Sample{At: at, Price: price})
	if excess := len(b.samples) - b.cap; excess > 0 {
		b.samples = append(b.samples[:0], b.samples[excess:]...)
	}
}

// Len reports the number of retained samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Last returns the most recent sample, or nil when empty.
func (b *Buffer) Last() *Sample {
	if len(b.samples) == 0 {
		return nil
	}
	s := b.samples[len(b.samples)-1]
	return &s
}

// Prev returns the second most recent sample, or nil.
func (b *Buffer) Prev() *Sample {
	if len(b.samples) < 2 {
		return nil
	}
	s := b.samples[len(b.samples)-2]
	return &s
}

// PercentChangeSince computes (last-ref)/ref*100 where ref is the earliest
// retained sample at or after now-window. When the whole buffer is younger
// than the window the oldest sample serves as reference, which understates
// true elapsed-time change; callers accept the approximation.
func (b *Buffer) PercentChangeSince(now time.Time, window time.Duration) *decimal.Decimal {
	if len(b.samples) == 0 {
		return nil
	}

	cutoff := now.Add(-window)
	ref := b.samples[0]
	for _, s := range b.samples {
		if !s.At.Before(cutoff) {
			ref = s
			break
		}
	}

	if ref.Price.IsZero() {
		return nil
	}

	last := b.samples[len(b.samples)-1]
	change := last.Price.Sub(ref.Price).Div(ref.Price).Mul(decimal.NewFromInt(100))
	return &change
}

// MinMaxSince returns the high/low over samples at or after now-window. An
// empty sub-window falls back to the entire buffer; an empty buffer yields
// nil extremes.
func (b *Buffer) MinMaxSince(now time.Time, window time.Duration) MinMax {
	if len(b.samples) == 0 {
		return MinMax{}
	}

	cutoff := now.Add(-window)
	scan := make([]Sample, 0, len(b.samples))
	for _, s := range b.samples {
		if !s.At.Before(cutoff) {
			scan = append(scan, s)
		}
	}
	if len(scan) == 0 {
		scan = b.samples
	}

	high := scan[0].Price
	low := scan[0].Price
	for _, s := range scan[1:] {
		if s.Price.GreaterThan(high) {
			high = s.Price
		}
		if s.Price.LessThan(low) {
			low = s.Price
		}
	}
	return MinMax{High: &high, Low: &low}
}
