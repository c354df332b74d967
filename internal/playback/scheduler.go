package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

// Driver applies playback events to the authoritative trade.
type Driver interface {
	Playback(ctx context.Context, ev game.PlaybackEvent) (game.PlaybackUpdate, error)
}

// Scheduler turns the per-day cadence into Tick events for one trade and
// forwards user controls in between. Run owns the timer; Send may be called
// from any goroutine.
type Scheduler struct {
	drv      Driver
	log      *slog.Logger
	control  chan game.PlaybackEvent
	onUpdate func(game.PlaybackUpdate)
	delay    func(days, speed int) time.Duration
}

func New(drv Driver, logger *slog.Logger, onUpdate func(game.PlaybackUpdate)) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		drv:      drv,
		log:      logger,
		control:  make(chan game.PlaybackEvent),
		onUpdate: onUpdate,
		delay:    game.DayDelay,
	}
}

// SetDelay replaces the per-day cadence; nil restores the default.
func (s *Scheduler) SetDelay(fn func(days, speed int) time.Duration) {
	if fn == nil {
		fn = game.DayDelay
	}
	s.delay = fn
}

// Send hands a control event to the running loop.
func (s *Scheduler) Send(ctx context.Context, ev game.PlaybackEvent) error {
	select {
	case s.control <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives trade until it settles or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, trade game.ActiveTrade) (game.TradeRecord, error) {
	days := trade.DurationDays
	pb := trade.Playback

	timer := time.NewTimer(s.delay(days, pb.Speed))
	defer timer.Stop()
	if pb.Status != game.PlaybackRunning {
		timer.Stop()
	}

	for {
		var ev game.PlaybackEvent
		select {
		case <-ctx.Done():
			return game.TradeRecord{}, ctx.Err()
		case ev = <-s.control:
		case <-timer.C:
			ev = game.Tick{}
		}

		up, err := s.drv.Playback(ctx, ev)
		if err != nil {
			if _, tick := ev.(game.Tick); tick {
				return game.TradeRecord{}, err
			}
			s.log.Warn("playback control rejected", "event", eventName(ev), "err", err)
			continue
		}
		if s.onUpdate != nil {
			s.onUpdate(up)
		}
		if up.Record != nil {
			return *up.Record, nil
		}
		if up.Trade == nil {
			return game.TradeRecord{}, game.ErrNoActiveTrade
		}

		pb = up.Trade.Playback
		timer.Stop()
		if pb.Status == game.PlaybackRunning {
			timer.Reset(s.delay(days, pb.Speed))
		}
	}
}

func eventName(ev game.PlaybackEvent) string {
	switch e := ev.(type) {
	case game.Tick:
		return "tick"
	case game.TogglePause:
		return "toggle_pause"
	case game.Skip:
		return "skip"
	case game.PullOut:
		return "pull_out"
	case game.SetSpeed:
		return fmt.Sprintf("speed_%dx", e.Speed)
	}
	return fmt.Sprintf("%T", ev)
}
