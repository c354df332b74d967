package game

import (
	"errors"
	"math"
)

const (
	StarterBalance = int64(10_000)

	MarketSize = 10

	MaxLoanAmount    = int64(50_000)
	MaxLoanTermTurns = int64(100)
	BaseInterestRate = 0.05
	LoanGraceTurns   = 10

	RerollLimitPerCycle = 5
	RerollCycleTurns    = 5

	PullOutFeeRate = 0.25

	BaseTradeXP = int64(50)

	MaxEvents = 50
)

var (
	ErrTradeInProgress     = errors.New("a trade is already in progress")
	ErrNoActiveTrade       = errors.New("no active trade")
	ErrAssetNotFound       = errors.New("asset not found in current market")
	ErrInvalidUnits        = errors.New("units must be >= 1")
	ErrOverdraftUnits      = errors.New("insufficient balance: only a single unit may be bought")
	ErrInvalidDuration     = errors.New("duration must be between 1 and 365 days")
	ErrInvalidLoanAmount   = errors.New("loan amount must be between 1 and 50000")
	ErrInvalidLoanTerm     = errors.New("loan term must be between 1 and 100 turns")
	ErrLoanActive          = errors.New("a loan is already active")
	ErrNoLoan              = errors.New("no active loan")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrRerollLimit         = errors.New("reroll limit reached for this cycle")
	ErrRerollBalance       = errors.New("rerolls require a positive balance")
	ErrMergeIneligible     = errors.New("collectibles cannot be merged")
	ErrCollectibleNotFound = errors.New("collectible not found")
	ErrMaxRarity           = errors.New("rarity has no merge target")
	ErrItemNotFound        = errors.New("item not offered in the current shop rotation")
	ErrPlaybackFinished    = errors.New("playback already finished")
	ErrInvalidSpeed        = errors.New("speed must be 1, 2 or 4")
	ErrSkipInProgress      = errors.New("cannot pull out while skipping")
	ErrUnknownEvent        = errors.New("unknown playback event")
	ErrInvalidPlayback     = errors.New("playback day is outside the price path")
)

const (
	MinDurationDays = 1
	MaxDurationDays = 365
)

// floorMoney truncates a real amount toward negative infinity.
func floorMoney(v float64) int64 {
	return int64(math.Floor(v))
}

// roundMoney is used where a real price meets the integer balance.
func roundMoney(v float64) int64 {
	return int64(math.Round(v))
}
