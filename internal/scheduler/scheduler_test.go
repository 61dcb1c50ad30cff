package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2025, 6, 1, 12, 30, 10, 0, time.UTC)
	next := s.nextTick(now)
	want := time.Date(2025, 6, 1, 12, 31, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %s, got %s", want, next)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Minute}, zerolog.Nop())
	now := time.Now()
	next := s.nextTick(now)
	if got := next.Sub(now); got != time.Minute {
		t.Fatalf("expected one interval out, got %s", got)
	}
}

func TestStartDeliversTicksAndClosesOnCancel(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ticks := s.Start(ctx)
	select {
	case _, ok := <-ticks:
		if !ok {
			t.Fatal("channel closed before first tick")
		}
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestNewPanicsOnBadInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-positive interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
