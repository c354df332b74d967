package game

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Settlement is the ledger effect of closing a trade.
type Settlement struct {
	FinalValue   int64 `json:"finalValue"`
	Profit       int64 `json:"profit"`
	Fee          int64 `json:"fee"`
	NetProfit    int64 `json:"netProfit"`
	BalanceDelta int64 `json:"balanceDelta"`
	XPGained     int64 `json:"xpGained"`
}

// ExecuteTrade debits the order cost and starts playback along a freshly generated path.
func ExecuteTrade(s GameState, src Source, templateID string, units int64, durationDays int) (GameState, error) {
	if s.ActiveTrade != nil {
		return s, ErrTradeInProgress
	}
	if units < 1 {
		return s, ErrInvalidUnits
	}
	if durationDays < MinDurationDays || durationDays > MaxDurationDays {
		return s, ErrInvalidDuration
	}
	asset, ok := findAsset(s.ActiveAssets, templateID)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrAssetNotFound, templateID)
	}
	cost := roundMoney(float64(units) * asset.CurrentPrice)
	if cost > s.Balance && units != 1 {
		return s, fmt.Errorf("%w: cost %d exceeds balance %d", ErrOverdraftUnits, cost, s.Balance)
	}

	next := s.Clone()
	next.Balance -= cost
	next.CurrentAsset = &asset
	next.TradeParams = TradeParams{}
	next.ActiveTrade = &ActiveTrade{
		Asset:        asset,
		Units:        units,
		DurationDays: durationDays,
		Investment:   cost,
		EntryPrice:   asset.CurrentPrice,
		Path:         GeneratePath(src, asset.CurrentPrice, asset.Volatility, asset.Momentum, durationDays),
		Playback:     NewPlayback(asset.CurrentPrice),
		StartedTurn:  s.Turn,
	}
	return next, nil
}

// SettleTrade computes the ledger effect of a close at finalPrice. A held trade
// returns its final value. A pulled-out trade credits only its profit, less the fee
// on a gain; XP is always computed on the pre-fee profit.
func SettleTrade(finalPrice float64, investment, units int64, pulledOutEarly bool) Settlement {
	finalValue := roundMoney(finalPrice * float64(units))
	profit := finalValue - investment
	out := Settlement{
		FinalValue: finalValue,
		Profit:     profit,
		NetProfit:  profit,
		XPGained:   BaseTradeXP + max(0, floorDiv(profit, 100)),
	}
	if pulledOutEarly && profit > 0 {
		adjusted := floorMoney(float64(profit) * (1 - PullOutFeeRate))
		out.Fee = profit - adjusted
		out.NetProfit = adjusted
	}
	out.BalanceDelta = finalValue
	if pulledOutEarly {
		out.BalanceDelta = out.NetProfit
	}
	return out
}

// ApplyPlayback feeds one event to the active trade. When the event finishes the
// trade it is settled, recorded and the turn advances.
func ApplyPlayback(s GameState, src Source, deps TurnDeps, ev PlaybackEvent) (GameState, *TradeRecord, *TurnReport, error) {
	if s.ActiveTrade == nil {
		return s, nil, nil, ErrNoActiveTrade
	}
	trade := s.ActiveTrade
	pb, outcome, err := ReducePlayback(trade.Playback, trade.Path, ev)
	if err != nil {
		return s, nil, nil, err
	}
	next := s.Clone()
	next.ActiveTrade.Playback = pb
	if outcome == nil {
		return next, nil, nil, nil
	}

	settlement := SettleTrade(outcome.Price, trade.Investment, trade.Units, outcome.PulledOut)
	record := TradeRecord{
		ID:           uuid.NewString(),
		Turn:         next.Turn,
		TemplateID:   trade.Asset.TemplateID,
		AssetName:    trade.Asset.Name,
		Rarity:       trade.Asset.Rarity,
		Profit:       settlement.NetProfit,
		Fee:          settlement.Fee,
		Units:        trade.Units,
		BuyPrice:     trade.EntryPrice,
		SellPrice:    outcome.Price,
		Peak:         pb.Peak,
		Trough:       pb.Trough,
		DurationDays: trade.DurationDays,
		DaysHeld:     outcome.Day,
		PulledOut:    outcome.PulledOut,
		Climate:      next.Climate.Name,
		ClosedAt:     deps.now().UTC(),
	}
	next.Balance += settlement.BalanceDelta
	next.History = append(next.History, record)
	before := ComputeRank(next.XP)
	next.XP = addXP(next.XP, settlement.XPGained)
	next.syncRank()
	next.ActiveTrade = nil
	next.CurrentAsset = nil
	next.addEvent(EventTradeClosed, record.Turn, fmt.Sprintf("closed %s: profit %d", record.AssetName, record.Profit), record.Profit)
	if after := ComputeRank(next.XP); after != before {
		next.addEvent(EventRankUp, next.Turn, "promoted to "+RankTitle(next.XP), 0)
	}

	next, report := AdvanceTurn(next, src, deps)
	return next, &record, &report, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func addXP(xp, gained int64) int64 {
	if gained <= 0 {
		return xp
	}
	if xp > math.MaxInt64-gained {
		return math.MaxInt64
	}
	return xp + gained
}
