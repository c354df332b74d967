package game

import "time"

type GameState struct {
	Balance      int64         `json:"balance"`
	Turn         int64         `json:"turn"`
	Climate      Climate       `json:"climate"`
	ActiveAssets []Asset       `json:"activeAssets"`
	CurrentAsset *Asset        `json:"currentAsset,omitempty"`
	TradeParams  TradeParams   `json:"tradeParams"`
	ActiveTrade  *ActiveTrade  `json:"activeTrade,omitempty"`
	Loan         Loan          `json:"loan"`
	History      []TradeRecord `json:"history"`
	XP           int64         `json:"xp"`
	TierIndex    int           `json:"tierIndex"`
	RankInTier   int           `json:"rankWithinTier"`
	Reroll       RerollState   `json:"rerollState"`
	Collection   []Collectible `json:"collection"`
	Events       []Event       `json:"events"`
}

type Asset struct {
	TemplateID   string  `json:"templateId"`
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	Icon         string  `json:"icon"`
	CurrentPrice float64 `json:"currentPrice"`
	Rarity       Rarity  `json:"rarity"`
	Volatility   float64 `json:"volatility"`
	Momentum     float64 `json:"momentum"`
	Hype         int     `json:"hype"`
}

type TradeParams struct {
	Units        int64 `json:"units"`
	DurationDays int   `json:"durationDays"`
	Investment   int64 `json:"investment"`
}

type ActiveTrade struct {
	Asset        Asset     `json:"asset"`
	Units        int64     `json:"units"`
	DurationDays int       `json:"durationDays"`
	Investment   int64     `json:"investment"`
	EntryPrice   float64   `json:"entryPrice"`
	Path         []float64 `json:"path"`
	Playback     Playback  `json:"playback"`
	StartedTurn  int64     `json:"startedTurn"`
}

type Loan struct {
	Active       bool    `json:"active"`
	Amount       int64   `json:"amount"`
	Principal    int64   `json:"principal"`
	DueTurn      int64   `json:"dueTurn"`
	InterestRate float64 `json:"interestRate"`
	TermTurns    int64   `json:"termTurns"`
}

type TradeRecord struct {
	ID           string    `json:"id"`
	Turn         int64     `json:"turn"`
	TemplateID   string    `json:"templateId"`
	AssetName    string    `json:"assetName"`
	Rarity       Rarity    `json:"rarity"`
	Profit       int64     `json:"profit"`
	Fee          int64     `json:"fee"`
	Units        int64     `json:"units"`
	BuyPrice     float64   `json:"buyPrice"`
	SellPrice    float64   `json:"sellPrice"`
	Peak         float64   `json:"peak"`
	Trough       float64   `json:"trough"`
	DurationDays int       `json:"durationDays"`
	DaysHeld     int       `json:"daysHeld"`
	PulledOut    bool      `json:"pulledOut"`
	Climate      string    `json:"climate"`
	ClosedAt     time.Time `json:"closedAt"`
}

type RerollState struct {
	Limit     int   `json:"limit"`
	Count     int   `json:"count"`
	BasePrice int64 `json:"basePrice"`
}

type Collectible struct {
	ID            string `json:"id"`
	ItemID        string `json:"itemId"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
	Rarity        Rarity `json:"rarity"`
	Level         int    `json:"level"`
	PurchasePrice int64  `json:"purchasePrice"`
	AcquiredTurn  int64  `json:"acquiredTurn"`
}

type EventKind string

const (
	EventLoanTaken   EventKind = "loan_taken"
	EventLoanPaid    EventKind = "loan_paid"
	EventLoanPenalty EventKind = "loan_penalty"
	EventLoanDefault EventKind = "loan_default"
	EventTradeClosed EventKind = "trade_closed"
	EventMerge       EventKind = "merge"
	EventRankUp      EventKind = "rank_up"
)

type Event struct {
	Kind    EventKind `json:"kind"`
	Turn    int64     `json:"turn"`
	Message string    `json:"message"`
	Amount  int64     `json:"amount"`
}

type TurnReport struct {
	Turn    int64   `json:"turn"`
	Climate Climate `json:"climate"`
	Events  []Event `json:"events"`
}

type Dashboard struct {
	Balance          int64   `json:"balance"`
	Turn             int64   `json:"turn"`
	Climate          Climate `json:"climate"`
	NetWorth         int64   `json:"netWorth"`
	LoanOutstanding  int64   `json:"loanOutstanding"`
	LoanDueTurn      int64   `json:"loanDueTurn"`
	CollectionValue  int64   `json:"collectionValue"`
	XP               int64   `json:"xp"`
	Rank             Rank    `json:"rank"`
	RankTitle        string  `json:"rankTitle"`
	TradesClosed     int     `json:"tradesClosed"`
	RealizedProfit   int64   `json:"realizedProfit"`
	RerollsRemaining int     `json:"rerollsRemaining"`
	NextRerollCost   int64   `json:"nextRerollCost"`
	TradeInProgress  bool    `json:"tradeInProgress"`
}
