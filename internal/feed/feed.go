// Package feed maintains the current price across a strict-priority chain of
// live websocket links with a polling REST aggregator as the terminal
// fallback. Every link pushes validated ticks into a shared event channel
// drained by the service loop.
package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one accepted price observation from the active link.
type Tick struct {
	Source string
	At     time.Time
	Price  decimal.Decimal
}

// Event is either a tick or a human-readable status notice. Exactly one
// field is set.
type Event struct {
	Tick   *Tick
	Notice string
}

func tickEvent(source string, price decimal.Decimal) Event {
	return Event{Tick: &Tick{Source: source, At: time.Now().UTC(), Price: price}}
}

func noticeEvent(text string) Event {
	return Event{Notice: text}
}

// send delivers an event without ever blocking a transport goroutine. When
// the service loop lags, ticks are dropped; the next one supersedes them
// anyway.
func send(events chan<- Event, ev Event) {
	select {
	case events <- ev:
	default:
	}
}
