package game

import (
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

// TurnDeps carries the collaborators a turn advance draws on.
type TurnDeps struct {
	Templates []catalog.AssetTemplate
	Now       func() time.Time
}

func (d TurnDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// AdvanceTurn moves to the next year: a new climate and offer, the loan status
// check and the periodic reroll reset.
func AdvanceTurn(s GameState, src Source, deps TurnDeps) (GameState, TurnReport) {
	next := s.Clone()
	next.Turn++
	next.Climate = SelectClimate(src)
	next.ActiveAssets = GenerateAssets(src, deps.Templates, next.Climate)
	next.CurrentAsset = nil

	var events []Event
	var ev *Event
	next, ev = CheckLoanStatus(next)
	if ev != nil {
		events = append(events, *ev)
	}
	resetRerollIfDue(&next)

	return next, TurnReport{Turn: next.Turn, Climate: next.Climate, Events: events}
}

// RandomizeMarket redraws both the climate and the offer without advancing the turn.
func RandomizeMarket(s GameState, src Source, templates []catalog.AssetTemplate) (GameState, error) {
	if s.ActiveTrade != nil {
		return s, ErrTradeInProgress
	}
	next := s.Clone()
	next.Climate = SelectClimate(src)
	next.ActiveAssets = GenerateAssets(src, templates, next.Climate)
	next.CurrentAsset = nil
	return next, nil
}
