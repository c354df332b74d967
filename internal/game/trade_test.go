package game

import (
	"errors"
	"math"
	"testing"
)

func tradeState(price float64) GameState {
	s := NewGameState(nil, nil)
	s.ActiveAssets = []Asset{{
		TemplateID:   "NIMBUS",
		Name:         "Nimbus Cloudworks",
		CurrentPrice: price,
		Rarity:       Standard,
		Volatility:   1,
		Momentum:     1,
	}}
	return s
}

func TestSettleTrade(t *testing.T) {
	tests := []struct {
		name      string
		final     float64
		pulledOut bool
		want      Settlement
	}{
		{
			name:  "held gain",
			final: 200,
			want:  Settlement{FinalValue: 2000, Profit: 1000, NetProfit: 1000, BalanceDelta: 2000, XPGained: 60},
		},
		{
			name:      "pulled out gain",
			final:     200,
			pulledOut: true,
			want:      Settlement{FinalValue: 2000, Profit: 1000, Fee: 250, NetProfit: 750, BalanceDelta: 750, XPGained: 60},
		},
		{
			name:      "pulled out loss",
			final:     50,
			pulledOut: true,
			want:      Settlement{FinalValue: 500, Profit: -500, NetProfit: -500, BalanceDelta: -500, XPGained: 50},
		},
	}
	for _, tc := range tests {
		got := SettleTrade(tc.final, 1000, 10, tc.pulledOut)
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.name, got, tc.want)
		}
	}
}

func TestPullOutCreditsAdjustedProfitOnly(t *testing.T) {
	s := tradeState(100)
	src := &scripted{floats: []float64{0.5}}
	s, err := ExecuteTrade(s, src, "NIMBUS", 10, 3)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	s.ActiveTrade.Path = []float64{100, 200, 150, 120}
	deps := TurnDeps{Templates: testTemplates()}
	if s, _, _, err = ApplyPlayback(s, src, deps, Tick{}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	before := s.Balance
	s, rec, _, err := ApplyPlayback(s, src, deps, PullOut{})
	if err != nil {
		t.Fatalf("pull out: %v", err)
	}
	if got := s.Balance - before; got != 750 {
		t.Fatalf("balance credited %d want 750", got)
	}
	if rec.Profit != 750 || rec.Fee != 250 {
		t.Fatalf("record=%+v", rec)
	}
	if s.XP != 60 {
		t.Fatalf("xp=%d want 60", s.XP)
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int64 }{
		{a: 1099, b: 100, want: 10},
		{a: -1, b: 100, want: -1},
		{a: -100, b: 100, want: -1},
		{a: -101, b: 100, want: -2},
		{a: 9_007_199_254_740_993, b: 1, want: 9_007_199_254_740_993},
	}
	for _, tc := range tests {
		if got := floorDiv(tc.a, tc.b); got != tc.want {
			t.Fatalf("floorDiv(%d, %d)=%d want %d", tc.a, tc.b, got, tc.want)
		}
	}
	if got := addXP(math.MaxInt64-5, 10); got != math.MaxInt64 {
		t.Fatalf("addXP overflow=%d", got)
	}
}

func TestExecuteTradeValidation(t *testing.T) {
	s := tradeState(100)
	tests := []struct {
		id    string
		units int64
		days  int
		want  error
	}{
		{id: "NIMBUS", units: 0, days: 10, want: ErrInvalidUnits},
		{id: "NIMBUS", units: 1, days: 0, want: ErrInvalidDuration},
		{id: "NIMBUS", units: 1, days: 366, want: ErrInvalidDuration},
		{id: "NOPE", units: 1, days: 10, want: ErrAssetNotFound},
		{id: "NIMBUS", units: 101, days: 10, want: ErrOverdraftUnits},
	}
	for _, tc := range tests {
		if _, err := ExecuteTrade(s, &scripted{}, tc.id, tc.units, tc.days); !errors.Is(err, tc.want) {
			t.Fatalf("%+v: err=%v want %v", tc, err, tc.want)
		}
	}
}

func TestExecuteTradeSingleUnitOverdraft(t *testing.T) {
	s := tradeState(100)
	s.Balance = 40
	next, err := ExecuteTrade(s, &scripted{floats: []float64{0.5}}, "NIMBUS", 1, 5)
	if err != nil {
		t.Fatalf("single unit overdraft: %v", err)
	}
	if next.Balance != -60 {
		t.Fatalf("balance=%d want -60", next.Balance)
	}
	if _, err := ExecuteTrade(next, &scripted{}, "NIMBUS", 1, 5); !errors.Is(err, ErrTradeInProgress) {
		t.Fatalf("second trade err=%v", err)
	}
	if s.ActiveTrade != nil || s.Balance != 40 {
		t.Fatalf("input state mutated")
	}
}

func TestApplyPlaybackPullOutSettles(t *testing.T) {
	s := tradeState(100)
	src := &scripted{floats: []float64{0.5}}
	s, err := ExecuteTrade(s, src, "NIMBUS", 10, 2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if s.Balance != 9000 || s.ActiveTrade.Investment != 1000 || len(s.ActiveTrade.Path) != 3 {
		t.Fatalf("unexpected trade state: balance=%d trade=%+v", s.Balance, s.ActiveTrade)
	}
	s.ActiveTrade.Path = []float64{100, 120, 200}
	deps := TurnDeps{Templates: testTemplates()}

	s, rec, _, err := ApplyPlayback(s, src, deps, Tick{})
	if err != nil || rec != nil {
		t.Fatalf("tick: rec=%v err=%v", rec, err)
	}
	s, rec, report, err := ApplyPlayback(s, src, deps, PullOut{})
	if err != nil {
		t.Fatalf("pull out: %v", err)
	}
	if rec == nil || report == nil {
		t.Fatalf("expected settlement")
	}
	if rec.Profit != 150 || rec.Fee != 50 || !rec.PulledOut || rec.DaysHeld != 1 || rec.SellPrice != 120 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if s.Balance != 9150 {
		t.Fatalf("balance=%d want 9150", s.Balance)
	}
	if s.XP != 52 {
		t.Fatalf("xp=%d want 52", s.XP)
	}
	if s.ActiveTrade != nil || s.CurrentAsset != nil {
		t.Fatalf("trade not cleared")
	}
	if s.Turn != 2 || report.Turn != 2 {
		t.Fatalf("turn=%d report=%d want 2", s.Turn, report.Turn)
	}
	if len(s.History) != 1 || len(s.ActiveAssets) != MarketSize {
		t.Fatalf("history=%d assets=%d", len(s.History), len(s.ActiveAssets))
	}
}

func TestApplyPlaybackWithoutTrade(t *testing.T) {
	s := NewGameState(nil, nil)
	if _, _, _, err := ApplyPlayback(s, &scripted{}, TurnDeps{}, Tick{}); !errors.Is(err, ErrNoActiveTrade) {
		t.Fatalf("err=%v", err)
	}
}
