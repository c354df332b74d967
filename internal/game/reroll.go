package game

import (
	"fmt"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

const (
	rerollBaseRate = 0.05
	rerollStepRate = 0.01
)

type RerollResult struct {
	Cost      int64 `json:"cost"`
	Remaining int   `json:"remaining"`
	NextCost  int64 `json:"nextCost"`
}

// RerollCost prices the next reroll. The base is fixed by the first reroll of a
// cycle; each later reroll adds a step proportional to the current balance.
func RerollCost(r RerollState, balance int64) int64 {
	base := r.BasePrice
	if r.Count == 0 {
		base = floorMoney(float64(balance) * rerollBaseRate)
	}
	return base + floorMoney(float64(balance)*rerollStepRate)*int64(r.Count)
}

// Reroll regenerates the offer under the current climate.
func Reroll(s GameState, src Source, templates []catalog.AssetTemplate) (GameState, RerollResult, error) {
	var out RerollResult
	if s.ActiveTrade != nil {
		return s, out, ErrTradeInProgress
	}
	if s.Reroll.Limit <= 0 {
		return s, out, ErrRerollLimit
	}
	if s.Balance <= 0 {
		return s, out, ErrRerollBalance
	}
	cost := RerollCost(s.Reroll, s.Balance)
	if cost > s.Balance {
		return s, out, fmt.Errorf("%w: reroll costs %d, balance %d", ErrInsufficientFunds, cost, s.Balance)
	}

	next := s.Clone()
	if next.Reroll.Count == 0 {
		next.Reroll.BasePrice = floorMoney(float64(s.Balance) * rerollBaseRate)
	}
	next.Balance -= cost
	next.ActiveAssets = GenerateAssets(src, templates, next.Climate)
	next.CurrentAsset = nil
	next.Reroll.Count++
	next.Reroll.Limit--

	out.Cost = cost
	out.Remaining = next.Reroll.Limit
	out.NextCost = RerollCost(next.Reroll, next.Balance)
	return next, out, nil
}

func resetRerollIfDue(s *GameState) {
	if s.Turn%RerollCycleTurns == 0 {
		s.Reroll = RerollState{Limit: RerollLimitPerCycle}
	}
}
