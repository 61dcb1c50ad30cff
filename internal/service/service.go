// Package service owns every piece of mutable market state. One goroutine
// runs the event loop; stream links, pollers, refresh fetches, and notifier
// posts all live in their own goroutines and talk to the loop through
// channels. The render tick therefore never waits on network I/O.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hodlwatch/internal/alerting"
	"hodlwatch/internal/balance"
	"hodlwatch/internal/buffer"
	"hodlwatch/internal/feed"
	"hodlwatch/internal/metrics"
	"hodlwatch/internal/portfolio"
	"hodlwatch/internal/render"
	"hodlwatch/internal/scheduler"
	"hodlwatch/internal/storage"
)

// Deps collects the collaborators the loop drives. Nil-able fields degrade
// that capability instead of failing: no store means no audit trail, no
// notifier means alerts are log-only.
type Deps struct {
	Chain        *feed.Chain
	Buffer       *buffer.Buffer
	Refresher    *balance.Refresher
	StatsFetcher *feed.StatsFetcher
	Evaluator    *alerting.Evaluator
	Notifier     alerting.Notifier
	Renderer     render.Renderer
	SampleStore  storage.SampleStore
	AlertStore   storage.AlertStore

	Lots       []portfolio.Lot
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal

	RenderInterval  time.Duration
	RefreshInterval time.Duration
	StatsInterval   time.Duration
}

// Service multiplexes feed events and periodic ticks over the cached state.
type Service struct {
	deps   Deps
	logger zerolog.Logger

	// loop-owned state, touched only from Run's goroutine
	currentPrice  *decimal.Decimal
	currentSource string
	statusNote    string
	liveQuantity  *decimal.Decimal
	stats         buffer.MinMax

	refreshInFlight bool
	statsInFlight   bool
}

// New constructs the watcher service.
func New(deps Deps, logger zerolog.Logger) *Service {
	return &Service{deps: deps, logger: logger.With().Str("component", "service").Logger()}
}

type quantityResult struct {
	value *decimal.Decimal
}

type statsResult struct {
	stats feed.Stats
	err   error
}

// Run blocks until ctx is cancelled. All failures inside the loop degrade to
// stale data plus a status notice; only cancellation ends it.
func (s *Service) Run(ctx context.Context) error {
	events := make(chan feed.Event, 256)
	go func() {
		_ = s.deps.Chain.Run(ctx, events)
	}()

	renderTicks := scheduler.New(scheduler.Options{Interval: s.deps.RenderInterval}, s.logger).Start(ctx)

	var refreshTicks <-chan time.Time
	if s.deps.Refresher != nil {
		refreshTicks = scheduler.New(scheduler.Options{Interval: s.deps.RefreshInterval}, s.logger).Start(ctx)
	}

	var statsTicks <-chan time.Time
	if s.deps.StatsFetcher != nil {
		statsTicks = scheduler.New(scheduler.Options{Interval: s.deps.StatsInterval}, s.logger).Start(ctx)
	}

	quantityCh := make(chan quantityResult, 1)
	statsCh := make(chan statsResult, 1)

	// prime the caches before the first render
	s.startRefresh(ctx, quantityCh)
	s.startStatsFetch(ctx, statsCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-events:
			s.applyEvent(ev)

		case res := <-quantityCh:
			s.refreshInFlight = false
			if res.value != nil {
				s.liveQuantity = res.value
			}

		case res := <-statsCh:
			s.statsInFlight = false
			if res.err != nil {
				s.logger.Debug().Err(res.err).Msg("stats refresh failed, keeping previous window")
				break
			}
			high, low := res.stats.High, res.stats.Low
			s.stats = buffer.MinMax{High: &high, Low: &low}

		case <-refreshTicks:
			s.startRefresh(ctx, quantityCh)

		case <-statsTicks:
			s.startStatsFetch(ctx, statsCh)

		case now := <-renderTicks:
			s.tick(ctx, now)
		}
	}
}

func (s *Service) applyEvent(ev feed.Event) {
	if ev.Tick != nil {
		s.deps.Buffer.Append(ev.Tick.At, ev.Tick.Price)
		price := ev.Tick.Price
		s.currentPrice = &price
		s.currentSource = ev.Tick.Source
		return
	}
	if ev.Notice != "" {
		s.statusNote = ev.Notice
		s.logger.Info().Str("notice", ev.Notice).Msg("feed status changed")
	}
}

// tick renders one frame and evaluates alerts. Reads cached state only.
func (s *Service) tick(ctx context.Context, now time.Time) {
	position := portfolio.BuildPosition(s.deps.Lots, s.liveQuantity)

	snap := metrics.Compute(metrics.Inputs{
		Now:          now,
		CurrentPrice: s.currentPrice,
		Buffer:       s.deps.Buffer,
		Position:     position,
		Stats:        s.stats,
		StopLoss:     s.deps.StopLoss,
		TakeProfit:   s.deps.TakeProfit,
	})

	if s.deps.Renderer != nil {
		s.deps.Renderer.Render(snap, s.statusNote)
	}

	if s.currentPrice != nil {
		s.persistSample(ctx, storage.PriceSample{At: now, Price: *s.currentPrice, Source: s.currentSource})
		s.evaluateAlerts(ctx, now, *s.currentPrice)
	}
}

func (s *Service) evaluateAlerts(ctx context.Context, now time.Time, price decimal.Decimal) {
	if s.deps.Evaluator == nil {
		return
	}

	alert, fired := s.deps.Evaluator.Evaluate(now, price)
	if !fired {
		return
	}

	s.logger.Warn().Str("kind", string(alert.Kind)).Str("price", alert.Price.String()).Msg("alert triggered")

	if s.deps.AlertStore != nil {
		go func() {
			actx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			record := storage.AlertEvent{
				FiredAt:   alert.At,
				Kind:      string(alert.Kind),
				Price:     alert.Price,
				Threshold: alert.Threshold,
			}
			if _, err := s.deps.AlertStore.InsertAlertEvent(actx, record); err != nil {
				s.logger.Error().Err(err).Msg("failed to persist alert event")
			}
		}()
	}

	if s.deps.Notifier != nil {
		go func() {
			nctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := s.deps.Notifier.Notify(nctx, alert); err != nil {
				s.logger.Error().Err(err).Msg("failed to dispatch alert")
			}
		}()
	}
}

func (s *Service) persistSample(ctx context.Context, sample storage.PriceSample) {
	if s.deps.SampleStore == nil {
		return
	}
	go func() {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.deps.SampleStore.InsertPriceSample(pctx, sample); err != nil {
			s.logger.Debug().Err(err).Msg("failed to persist price sample")
		}
	}()
}

// startRefresh kicks one balance round in the background. At most one round
// is in flight; the Refresher is only ever touched by that goroutine.
func (s *Service) startRefresh(ctx context.Context, results chan<- quantityResult) {
	if s.deps.Refresher == nil || s.refreshInFlight {
		return
	}
	s.refreshInFlight = true
	go func() {
		results <- quantityResult{value: s.deps.Refresher.Refresh(ctx)}
	}()
}

func (s *Service) startStatsFetch(ctx context.Context, results chan<- statsResult) {
	if s.deps.StatsFetcher == nil || s.statsInFlight {
		return
	}
	s.statsInFlight = true
	go func() {
		stats, err := s.deps.StatsFetcher.Fetch(ctx)
		results <- statsResult{stats: stats, err: err}
	}()
}
