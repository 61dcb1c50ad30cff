package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Link is one provider in the failover chain. Run connects, pushes events
// until the transport dies, and returns the terminal error. The terminal
// polling link only returns when ctx is cancelled.
type Link interface {
	Name() string
	Run(ctx context.Context, events chan<- Event) error
}

// Chain runs links strictly in order: a link failure advances to the next,
// the last link is retried forever. Links execute sequentially in a single
// goroutine, so at most one is ever active.
type Chain struct {
	links      []Link
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewChain builds a chain over the given links, highest priority first.
func NewChain(logger zerolog.Logger, links ...Link) *Chain {
	return &Chain{
		links:      links,
		retryDelay: 5 * time.Second,
		logger:     logger.With().Str("component", "feed_chain").Logger(),
	}
}

// Run drives the chain until ctx is cancelled. Never returns an error other
// than ctx.Err(): running out of price sources is a degraded state, not a
// failure.
func (c *Chain) Run(ctx context.Context, events chan<- Event) error {
	for i := 0; i < len(c.links); {
		link := c.links[i]
		c.logger.Info().Str("link", link.Name()).Msg("activating price source")

		err := link.Run(ctx, events)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		last := i == len(c.links)-1
		c.logger.Warn().Err(err).Str("link", link.Name()).Bool("terminal", last).Msg("price source lost")

		if !last {
			send(events, noticeEvent(link.Name()+" disconnected, falling back"))
			i++
			continue
		}

		// terminal link returned unexpectedly; wait and re-run it
		send(events, noticeEvent(link.Name()+" stalled, retrying"))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
	return ctx.Err()
}
