package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hodlwatch/internal/alerting"
	"hodlwatch/internal/buffer"
	"hodlwatch/internal/config"
	"hodlwatch/internal/feed"
	"hodlwatch/internal/metrics"
	"hodlwatch/internal/portfolio"
)

type captureRenderer struct {
	snaps  []metrics.Snapshot
	status []string
}

func (c *captureRenderer) Render(snap metrics.Snapshot, status string) {
	c.snaps = append(c.snaps, snap)
	c.status = append(c.status, status)
}

func newTestService(r *captureRenderer) *Service {
	lots := portfolio.NormalizeLots([]config.LotConfig{{Qty: 2, Price: 1000}})
	return New(Deps{
		Buffer:   buffer.New(10),
		Renderer: r,
		Lots:     lots,
	}, zerolog.Nop())
}

func tickEv(price int64) feed.Event {
	p := decimal.NewFromInt(price)
	return feed.Event{Tick: &feed.Tick{Source: "test", At: time.Now(), Price: p}}
}

func TestApplyEventUpdatesPriceAndBuffer(t *testing.T) {
	s := newTestService(&captureRenderer{})

	s.applyEvent(tickEv(3000))
	if s.currentPrice == nil || s.currentPrice.Cmp(decimal.NewFromInt(3000)) != 0 {
		t.Fatalf("expected current price 3000, got %v", s.currentPrice)
	}
	if s.deps.Buffer.Len() != 1 {
		t.Fatalf("tick must land in the buffer, len=%d", s.deps.Buffer.Len())
	}

	s.applyEvent(feed.Event{Notice: "binance-ws connected"})
	if s.statusNote != "binance-ws connected" {
		t.Fatalf("notice must update the status note, got %q", s.statusNote)
	}
	if s.deps.Buffer.Len() != 1 {
		t.Fatal("a notice must not touch the buffer")
	}
}

func TestTickRendersCachedState(t *testing.T) {
	r := &captureRenderer{}
	s := newTestService(r)
	s.applyEvent(tickEv(3000))
	s.applyEvent(feed.Event{Notice: "rest-poller active"})

	s.tick(context.Background(), time.Now())

	if len(r.snaps) != 1 {
		t.Fatalf("expected one rendered frame, got %d", len(r.snaps))
	}
	snap := r.snaps[0]
	if snap.Price == nil || snap.Price.Cmp(decimal.NewFromInt(3000)) != 0 {
		t.Fatalf("expected snapshot price 3000, got %v", snap.Price)
	}
	if snap.PositionValue == nil || snap.PositionValue.Cmp(decimal.NewFromInt(6000)) != 0 {
		t.Fatalf("expected position value 6000, got %v", snap.PositionValue)
	}
	if r.status[0] != "rest-poller active" {
		t.Fatalf("status note must reach the renderer, got %q", r.status[0])
	}
}

func TestTickWithoutPriceStillRenders(t *testing.T) {
	r := &captureRenderer{}
	s := newTestService(r)

	s.tick(context.Background(), time.Now())

	if len(r.snaps) != 1 {
		t.Fatal("a priceless tick must still render")
	}
	if r.snaps[0].Direction != metrics.DirectionNeutral {
		t.Fatalf("expected neutral direction, got %s", r.snaps[0].Direction)
	}
}

type recordingNotifier struct {
	fired chan alerting.Alert
}

func (n *recordingNotifier) Notify(ctx context.Context, alert alerting.Alert) error {
	n.fired <- alert
	return nil
}

func TestTickEvaluatesAlerts(t *testing.T) {
	stop := decimal.NewFromInt(2000)
	notifier := &recordingNotifier{fired: make(chan alerting.Alert, 1)}

	s := New(Deps{
		Buffer:    buffer.New(10),
		Renderer:  &captureRenderer{},
		Evaluator: alerting.NewEvaluator("ETH", &stop, nil, time.Hour),
		Notifier:  notifier,
	}, zerolog.Nop())

	s.applyEvent(tickEv(1500))
	s.tick(context.Background(), time.Now())

	select {
	case alert := <-notifier.fired:
		if alert.Kind != alerting.KindStopLoss {
			t.Fatalf("expected stop_loss, got %s", alert.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("alert never dispatched")
	}

	// second tick inside the cooldown must stay silent
	s.applyEvent(tickEv(1400))
	s.tick(context.Background(), time.Now())
	select {
	case <-notifier.fired:
		t.Fatal("cooldown must suppress the second alert")
	case <-time.After(50 * time.Millisecond):
	}
}
