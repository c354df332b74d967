package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

// Store persists the whole state under one snapshot key. Load must return a
// normalised state and never fail on malformed data.
type Store interface {
	Load(ctx context.Context) (GameState, error)
	Save(ctx context.Context, s GameState) error
}

type Options struct {
	Source  Source
	Catalog *catalog.Catalog
	Shop    *ShopRotation
	Now     func() time.Time
}

// Service owns one player session. Commands are serialised under mu and the
// new state is written through to the store before the call returns.
type Service struct {
	store   Store
	log     *slog.Logger
	mu      sync.Mutex
	rand    Source
	catalog catalog.Catalog
	shop    *ShopRotation
	now     func() time.Time
	state   GameState
}

type PlaybackUpdate struct {
	Trade  *ActiveTrade `json:"trade,omitempty"`
	Record *TradeRecord `json:"record,omitempty"`
	Report *TurnReport  `json:"report,omitempty"`
}

func NewService(ctx context.Context, store Store, logger *slog.Logger, opts Options) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store: store,
		log:   logger,
		rand:  opts.Source,
		shop:  opts.Shop,
		now:   opts.Now,
	}
	if s.rand == nil {
		s.rand = NewSource(0)
	}
	if opts.Catalog != nil {
		s.catalog = *opts.Catalog
	} else {
		s.catalog = catalog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.shop == nil {
		s.shop = NewShopRotation(0, s.now)
	}
	s.shop.Start()

	state, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	state, regen := Normalize(state)
	if regen {
		state.ActiveAssets = GenerateAssets(s.rand, s.catalog.Templates, state.Climate)
	}
	s.state = state
	if regen {
		s.persist(ctx, "init")
	}
	return s, nil
}

func (s *Service) deps() TurnDeps {
	return TurnDeps{Templates: s.catalog.Templates, Now: s.now}
}

func (s *Service) Catalog() catalog.Catalog {
	return s.catalog
}

func (s *Service) State() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Service) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Dashboard()
}

func (s *Service) ExecuteTrade(ctx context.Context, templateID string, units int64, durationDays int) (ActiveTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := ExecuteTrade(s.state, s.rand, templateID, units, durationDays)
	if err != nil {
		return ActiveTrade{}, err
	}
	s.state = next
	s.persist(ctx, "trade_execute")
	t := *next.ActiveTrade
	s.log.Info("trade started", "asset", templateID, "units", units, "days", durationDays, "investment", t.Investment)
	return t, nil
}

// Playback applies one playback event. Plain ticks that do not finish the trade
// are not written through so the store never sits on the timer path.
func (s *Service) Playback(ctx context.Context, ev PlaybackEvent) (PlaybackUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, record, report, err := ApplyPlayback(s.state, s.rand, s.deps(), ev)
	if err != nil {
		return PlaybackUpdate{}, err
	}
	if _, skip := ev.(Skip); skip && record == nil {
		// A skip has already walked the path; the closing tick settles it.
		next, record, report, err = ApplyPlayback(next, s.rand, s.deps(), Tick{})
		if err != nil {
			return PlaybackUpdate{}, err
		}
	}
	s.state = next
	out := PlaybackUpdate{Record: record, Report: report}
	if next.ActiveTrade != nil {
		t := *next.ActiveTrade
		t.Path = append([]float64(nil), next.ActiveTrade.Path...)
		out.Trade = &t
	}
	if _, isTick := ev.(Tick); !isTick || record != nil {
		s.persist(ctx, "playback")
	}
	if record != nil {
		s.log.Info("trade settled",
			"asset", record.TemplateID,
			"profit", record.Profit,
			"fee", record.Fee,
			"pulled_out", record.PulledOut,
			"turn", report.Turn,
		)
		s.logTurnEvents(report)
	}
	return out, nil
}

func (s *Service) Reroll(ctx context.Context) (RerollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, res, err := Reroll(s.state, s.rand, s.catalog.Templates)
	if err != nil {
		return res, err
	}
	s.state = next
	s.persist(ctx, "reroll")
	s.log.Info("market rerolled", "cost", res.Cost, "remaining", res.Remaining)
	return res, nil
}

func (s *Service) AdvanceTurn(ctx context.Context) (TurnReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ActiveTrade != nil {
		return TurnReport{}, ErrTradeInProgress
	}
	next, report := AdvanceTurn(s.state, s.rand, s.deps())
	s.state = next
	s.persist(ctx, "advance_turn")
	s.logTurnEvents(&report)
	return report, nil
}

func (s *Service) QuoteLoan(amount, termTurns int64) (LoanQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return QuoteLoan(s.state, amount, termTurns)
}

func (s *Service) TakeLoan(ctx context.Context, amount, termTurns int64) (LoanQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, q, err := TakeLoan(s.state, amount, termTurns)
	if err != nil {
		return q, err
	}
	s.state = next
	s.persist(ctx, "loan_take")
	s.log.Info("loan taken", "amount", amount, "term", termTurns, "total_due", q.TotalDue, "due_turn", q.DueTurn)
	return q, nil
}

func (s *Service) PayLoan(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, paid, err := PayLoan(s.state)
	if err != nil {
		return 0, err
	}
	s.state = next
	s.persist(ctx, "loan_pay")
	s.log.Info("loan repaid", "amount", paid)
	return paid, nil
}

func (s *Service) ShopOffers() []ShopOffer {
	return s.shop.Offers(s.catalog.Items)
}

func (s *Service) BuyCollectible(ctx context.Context, itemID string) (Collectible, error) {
	offers := s.ShopOffers()
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := BuyCollectible(s.state, offers, itemID)
	if err != nil {
		return c, err
	}
	s.state = next
	s.persist(ctx, "shop_buy")
	s.log.Info("collectible bought", "item", c.ItemID, "rarity", c.Rarity.String(), "price", c.PurchasePrice)
	return c, nil
}

func (s *Service) Merge(ctx context.Context, ids []string) (Collectible, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := Merge(s.state, ids)
	if err != nil {
		return c, err
	}
	s.state = next
	s.persist(ctx, "merge")
	s.log.Info("collectibles merged", "item", c.ItemID, "rarity", c.Rarity.String(), "level", c.Level, "sources", len(ids))
	return c, nil
}

func (s *Service) AddMoney(ctx context.Context, amount int64) error {
	return s.apply(ctx, "add_money", func(st GameState) (GameState, error) { return AddMoney(st, amount) })
}

func (s *Service) SetBalance(ctx context.Context, balance int64) error {
	return s.apply(ctx, "set_balance", func(st GameState) (GameState, error) { return SetBalance(st, balance) })
}

func (s *Service) AddXP(ctx context.Context, amount int64) error {
	return s.apply(ctx, "add_xp", func(st GameState) (GameState, error) {
		if st.ActiveTrade != nil {
			return st, ErrTradeInProgress
		}
		return AddXP(st, amount), nil
	})
}

func (s *Service) RandomizeMarket(ctx context.Context) error {
	return s.apply(ctx, "randomize_market", func(st GameState) (GameState, error) {
		return RandomizeMarket(st, s.rand, s.catalog.Templates)
	})
}

// Reset discards the session, including any trade in progress.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NewGameState(s.rand, s.catalog.Templates)
	s.shop.Reset()
	s.persist(ctx, "reset")
	s.log.Info("game reset")
	return nil
}

// Replace installs an imported state wholesale.
func (s *Service) Replace(ctx context.Context, st GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, regen := Normalize(st)
	if regen {
		st.ActiveAssets = GenerateAssets(s.rand, s.catalog.Templates, st.Climate)
	}
	s.state = st
	s.persist(ctx, "import")
	s.log.Info("state imported", "turn", st.Turn, "balance", st.Balance)
	return nil
}

func (s *Service) apply(ctx context.Context, action string, fn func(GameState) (GameState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	s.persist(ctx, action)
	s.log.Info("state changed", "action", action, "balance", next.Balance, "xp", next.XP)
	return nil
}

// persist must be called with mu held. A failed write is logged and retried
// implicitly by the next mutation, which saves the whole snapshot again.
func (s *Service) persist(ctx context.Context, action string) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.state); err != nil {
		s.log.Error("save state failed", "action", action, "err", err)
	}
}

func (s *Service) logTurnEvents(report *TurnReport) {
	if report == nil {
		return
	}
	for _, ev := range report.Events {
		if ev.Kind == EventLoanDefault {
			s.log.Warn("loan defaulted", "turn", ev.Turn, "seized", ev.Amount)
			continue
		}
		s.log.Info("turn event", "kind", string(ev.Kind), "turn", ev.Turn, "amount", ev.Amount)
	}
	s.log.Info("turn advanced", "turn", report.Turn, "climate", report.Climate.Name)
}
