package game

import "fmt"

const (
	// XPPerRank is authoritative for both state transitions and display.
	XPPerRank    = int64(1000)
	RanksPerTier = 5
	TierCount    = 10
)

var tierNames = [TierCount]string{
	"Intern",
	"Associate",
	"Analyst",
	"Trader",
	"Senior Trader",
	"Portfolio Manager",
	"Fund Manager",
	"Partner",
	"Tycoon",
	"Market Legend",
}

var romanRanks = [RanksPerTier]string{"I", "II", "III", "IV", "V"}

type Rank struct {
	TierIndex  int `json:"tierIndex"`
	RankInTier int `json:"rankWithinTier"`
}

func ComputeRank(xp int64) Rank {
	if xp < 0 {
		xp = 0
	}
	units := xp / XPPerRank
	tier := units / RanksPerTier
	if tier >= TierCount {
		return Rank{TierIndex: TierCount - 1, RankInTier: RanksPerTier}
	}
	return Rank{TierIndex: int(tier), RankInTier: int(units%RanksPerTier) + 1}
}

func (r Rank) TierName() string {
	if r.TierIndex < 0 || r.TierIndex >= TierCount {
		return tierNames[0]
	}
	return tierNames[r.TierIndex]
}

func (r Rank) String() string {
	idx := r.RankInTier - 1
	if idx < 0 || idx >= RanksPerTier {
		idx = 0
	}
	return fmt.Sprintf("%s %s", r.TierName(), romanRanks[idx])
}

func RankTitle(xp int64) string {
	return ComputeRank(xp).String()
}

// XPToNextRank is 0 at the ceiling.
func XPToNextRank(xp int64) int64 {
	r := ComputeRank(xp)
	if r.TierIndex == TierCount-1 && r.RankInTier == RanksPerTier {
		return 0
	}
	return (xp/XPPerRank+1)*XPPerRank - xp
}

func AddXP(s GameState, amount int64) GameState {
	next := s.Clone()
	next.XP = addXP(next.XP, amount)
	next.syncRank()
	return next
}
