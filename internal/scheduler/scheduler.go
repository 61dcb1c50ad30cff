package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
}

// Scheduler produces interval ticks, optionally aligned to wall-clock
// bucket boundaries. Ticks are delivered on a channel so a single event
// loop can multiplex several schedulers; a slow consumer drops ticks
// rather than queueing them.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Start launches the tick producer and returns its channel. The channel is
// closed when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) <-chan time.Time {
	ticks := make(chan time.Time, 1)

	go func() {
		defer close(ticks)

		if s.opts.StartupDelay > 0 {
			timer := time.NewTimer(s.opts.StartupDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		next := s.nextTick(time.Now().UTC())
		for {
			delay := time.Until(next)
			if delay < 0 {
				next = s.nextTick(time.Now().UTC())
				delay = time.Until(next)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				timer.Stop()
			}

			select {
			case ticks <- s.bucketStart(next):
			default:
				s.logger.Debug().Time("tick", next).Msg("consumer busy, tick dropped")
			}

			next = next.Add(s.opts.Interval)
		}
	}()

	return ticks
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	bucket := now.Truncate(s.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(s.opts.Interval)
	}
	return bucket
}

func (s *Scheduler) bucketStart(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}
