package main

import (
	"context"
	"errors"

	"github.com/Soujiro0/market-pulse-sub000/internal/client"
	"github.com/Soujiro0/market-pulse-sub000/internal/devcmd"
	"github.com/Soujiro0/market-pulse-sub000/internal/export"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

var errDevDisabled = errors.New("developer commands are disabled; set MP_DEV_COMMANDS=true")

// backend is the set of game commands the CLI issues. *client.Client talks
// to mp-api; local runs the same session in process.
type backend interface {
	State(ctx context.Context) (game.GameState, error)
	Dashboard(ctx context.Context) (game.Dashboard, error)
	Reroll(ctx context.Context) (game.RerollResult, error)
	AdvanceTurn(ctx context.Context) (game.TurnReport, error)
	ExecuteTrade(ctx context.Context, templateID string, units int64, durationDays int) (game.ActiveTrade, error)
	Playback(ctx context.Context, ev game.PlaybackEvent) (game.PlaybackUpdate, error)
	History(ctx context.Context, limit int) ([]game.TradeRecord, error)
	QuoteLoan(ctx context.Context, amount, termTurns int64) (game.LoanQuote, error)
	TakeLoan(ctx context.Context, amount, termTurns int64) (game.LoanQuote, error)
	PayLoan(ctx context.Context) (int64, error)
	ShopOffers(ctx context.Context) ([]game.ShopOffer, error)
	BuyCollectible(ctx context.Context, itemID string) (game.Collectible, error)
	Merge(ctx context.Context, ids []string) (game.Collectible, error)
	Export(ctx context.Context) (string, error)
	Import(ctx context.Context, blob string) (client.ImportResult, error)
	Dev(ctx context.Context, line string) (string, error)
}

var (
	_ backend = (*client.Client)(nil)
	_ backend = (*local)(nil)
)

type local struct {
	svc    *game.Service
	codec  *export.Codec
	player string
	dev    bool
}

func (l *local) State(context.Context) (game.GameState, error) {
	return l.svc.State(), nil
}

func (l *local) Dashboard(context.Context) (game.Dashboard, error) {
	return l.svc.Dashboard(), nil
}

func (l *local) Reroll(ctx context.Context) (game.RerollResult, error) {
	return l.svc.Reroll(ctx)
}

func (l *local) AdvanceTurn(ctx context.Context) (game.TurnReport, error) {
	return l.svc.AdvanceTurn(ctx)
}

func (l *local) ExecuteTrade(ctx context.Context, templateID string, units int64, durationDays int) (game.ActiveTrade, error) {
	return l.svc.ExecuteTrade(ctx, templateID, units, durationDays)
}

func (l *local) Playback(ctx context.Context, ev game.PlaybackEvent) (game.PlaybackUpdate, error) {
	return l.svc.Playback(ctx, ev)
}

func (l *local) History(_ context.Context, limit int) ([]game.TradeRecord, error) {
	history := l.svc.State().History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (l *local) QuoteLoan(_ context.Context, amount, termTurns int64) (game.LoanQuote, error) {
	return l.svc.QuoteLoan(amount, termTurns)
}

func (l *local) TakeLoan(ctx context.Context, amount, termTurns int64) (game.LoanQuote, error) {
	return l.svc.TakeLoan(ctx, amount, termTurns)
}

func (l *local) PayLoan(ctx context.Context) (int64, error) {
	return l.svc.PayLoan(ctx)
}

func (l *local) ShopOffers(context.Context) ([]game.ShopOffer, error) {
	return l.svc.ShopOffers(), nil
}

func (l *local) BuyCollectible(ctx context.Context, itemID string) (game.Collectible, error) {
	return l.svc.BuyCollectible(ctx, itemID)
}

func (l *local) Merge(ctx context.Context, ids []string) (game.Collectible, error) {
	return l.svc.Merge(ctx, ids)
}

func (l *local) Export(context.Context) (string, error) {
	return l.codec.Export(l.player, l.svc.State())
}

func (l *local) Import(ctx context.Context, blob string) (client.ImportResult, error) {
	env, err := l.codec.Import(blob)
	if err != nil {
		return client.ImportResult{}, err
	}
	if err := l.svc.Replace(ctx, env.GameState); err != nil {
		return client.ImportResult{}, err
	}
	return client.ImportResult{Player: env.Player, Dashboard: l.svc.Dashboard()}, nil
}

func (l *local) Dev(ctx context.Context, line string) (string, error) {
	if !l.dev {
		return "", errDevDisabled
	}
	return devcmd.Execute(ctx, l.svc, line)
}
