package game

import (
	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

// NewGameState returns the documented fresh-save defaults with a generated offer.
func NewGameState(src Source, templates []catalog.AssetTemplate) GameState {
	s := GameState{
		Balance:    StarterBalance,
		Turn:       1,
		Climate:    ClimateStable,
		Loan:       defaultLoan(),
		History:    []TradeRecord{},
		Reroll:     RerollState{Limit: RerollLimitPerCycle},
		Collection: []Collectible{},
		Events:     []Event{},
	}
	s.syncRank()
	if src != nil {
		s.ActiveAssets = GenerateAssets(src, templates, s.Climate)
	}
	return s
}

// Normalize repairs a decoded snapshot so the engine rules hold. It reports
// whether the offer has to be regenerated.
func Normalize(s GameState) (GameState, bool) {
	if s.Turn < 1 {
		s.Turn = 1
	}
	if s.XP < 0 {
		s.XP = 0
	}
	s.syncRank()
	if !s.Climate.valid() {
		s.Climate = ClimateStable
	}
	if s.Reroll.Count < 0 {
		s.Reroll.Count = 0
	}
	if s.Reroll.Limit < 0 {
		s.Reroll.Limit = 0
	}
	if s.Reroll.BasePrice < 0 {
		s.Reroll.BasePrice = 0
	}
	if s.Loan.Active && s.Loan.Amount <= 0 {
		s.Loan = defaultLoan()
	}
	if !s.Loan.Active && s.Loan.InterestRate <= 0 {
		s.Loan.InterestRate = BaseInterestRate
	}
	if s.ActiveTrade != nil && !resumable(*s.ActiveTrade) {
		s.ActiveTrade = nil
		s.CurrentAsset = nil
	}
	if s.ActiveTrade != nil && !validSpeed(s.ActiveTrade.Playback.Speed) {
		s.ActiveTrade.Playback.Speed = 1
	}
	if s.History == nil {
		s.History = []TradeRecord{}
	}
	if s.Collection == nil {
		s.Collection = []Collectible{}
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	return s, len(s.ActiveAssets) == 0
}

// resumable reports whether a persisted trade can still be played back.
func resumable(t ActiveTrade) bool {
	p := t.Playback
	switch {
	case len(t.Path) == 0, t.Units < 1, t.Investment < 0:
		return false
	case p.Day < 0, p.Day >= len(t.Path):
		return false
	case p.Status != PlaybackRunning && p.Status != PlaybackPaused && p.Status != PlaybackSkipping:
		return false
	}
	return true
}

// Clone deep-copies every slice so a command never aliases state it was given.
func (s GameState) Clone() GameState {
	out := s
	out.ActiveAssets = append([]Asset(nil), s.ActiveAssets...)
	out.History = append([]TradeRecord{}, s.History...)
	out.Collection = append([]Collectible{}, s.Collection...)
	out.Events = append([]Event{}, s.Events...)
	if s.CurrentAsset != nil {
		a := *s.CurrentAsset
		out.CurrentAsset = &a
	}
	if s.ActiveTrade != nil {
		t := *s.ActiveTrade
		t.Path = append([]float64(nil), s.ActiveTrade.Path...)
		out.ActiveTrade = &t
	}
	return out
}

func (s *GameState) syncRank() {
	r := ComputeRank(s.XP)
	s.TierIndex = r.TierIndex
	s.RankInTier = r.RankInTier
}

func (s *GameState) addEvent(kind EventKind, turn int64, msg string, amount int64) Event {
	ev := Event{Kind: kind, Turn: turn, Message: msg, Amount: amount}
	s.Events = append(s.Events, ev)
	if len(s.Events) > MaxEvents {
		s.Events = append([]Event{}, s.Events[len(s.Events)-MaxEvents:]...)
	}
	return ev
}

func (s GameState) Rank() Rank {
	return ComputeRank(s.XP)
}

func (s GameState) Dashboard() Dashboard {
	d := Dashboard{
		Balance:          s.Balance,
		Turn:             s.Turn,
		Climate:          s.Climate,
		XP:               s.XP,
		Rank:             s.Rank(),
		RankTitle:        RankTitle(s.XP),
		TradesClosed:     len(s.History),
		RerollsRemaining: s.Reroll.Limit,
		NextRerollCost:   RerollCost(s.Reroll, s.Balance),
		TradeInProgress:  s.ActiveTrade != nil,
	}
	if s.Loan.Active {
		d.LoanOutstanding = s.Loan.Amount
		d.LoanDueTurn = s.Loan.DueTurn
	}
	for _, c := range s.Collection {
		d.CollectionValue += c.PurchasePrice
	}
	for _, h := range s.History {
		d.RealizedProfit += h.Profit
	}
	d.NetWorth = d.Balance + d.CollectionValue - d.LoanOutstanding
	return d
}

func SetBalance(s GameState, balance int64) (GameState, error) {
	if s.ActiveTrade != nil {
		return s, ErrTradeInProgress
	}
	next := s.Clone()
	next.Balance = balance
	return next, nil
}

func AddMoney(s GameState, amount int64) (GameState, error) {
	if s.ActiveTrade != nil {
		return s, ErrTradeInProgress
	}
	next := s.Clone()
	next.Balance += amount
	return next, nil
}
