package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/devcmd"
	"github.com/Soujiro0/market-pulse-sub000/internal/export"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

type Server struct {
	cfg   config.APIConfig
	log   *slog.Logger
	game  *game.Service
	codec *export.Codec
	mux   *chi.Mux

	streaming atomic.Bool
	tickDelay func(days, speed int) time.Duration
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service, codec *export.Codec) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if codec == nil {
		codec = export.DefaultCodec()
	}
	s := &Server{
		cfg:       cfg,
		log:       logger,
		game:      gameSvc,
		codec:     codec,
		mux:       chi.NewRouter(),
		tickDelay: game.DayDelay,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		// The stream outlives any request timeout.
		r.Get("/trade/stream", s.handleTradeStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/state", s.handleState)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/market", s.handleMarket)
			r.Get("/catalog", s.handleCatalog)
			r.Get("/catalog/templates/{id}", s.handleCatalogTemplate)
			r.Get("/catalog/items/{id}", s.handleCatalogItem)
			r.Post("/market/reroll", s.handleReroll)
			r.Post("/turns/advance", s.handleAdvanceTurn)

			r.Post("/trades", s.handleExecuteTrade)
			r.Get("/trades/active", s.handleActiveTrade)
			r.Post("/trades/active/playback", s.handlePlayback)
			r.Get("/history", s.handleHistory)

			r.Get("/loans/quote", s.handleLoanQuote)
			r.Post("/loans", s.handleTakeLoan)
			r.Post("/loans/repay", s.handlePayLoan)

			r.Get("/shop", s.handleShop)
			r.Post("/shop/buy", s.handleShopBuy)
			r.Get("/collection", s.handleCollection)
			r.Post("/collection/merge", s.handleMerge)

			r.Post("/export", s.handleExport)
			r.Post("/import", s.handleImport)

			if s.cfg.DevCommands {
				r.Post("/dev", s.handleDevCommand)
			}
		})
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.State())
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	st := s.game.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"turn":             st.Turn,
		"climate":          st.Climate,
		"assets":           st.ActiveAssets,
		"rerollsRemaining": st.Reroll.Limit,
		"nextRerollCost":   game.RerollCost(st.Reroll, st.Balance),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Catalog())
}

func (s *Server) handleCatalogTemplate(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(chi.URLParam(r, "id"))
	t, ok := s.game.Catalog().Template(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown asset template "+id)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCatalogItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	it, ok := s.game.Catalog().Item(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collectible item "+id)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleReroll(w http.ResponseWriter, r *http.Request) {
	res, err := s.game.Reroll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	report, err := s.game.AdvanceTurn(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TemplateID   string `json:"templateId"`
		Units        int64  `json:"units"`
		DurationDays int    `json:"durationDays"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := s.game.ExecuteTrade(r.Context(), strings.ToUpper(strings.TrimSpace(in.TemplateID)), in.Units, in.DurationDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleActiveTrade(w http.ResponseWriter, _ *http.Request) {
	st := s.game.State()
	if st.ActiveTrade == nil {
		writeError(w, http.StatusNotFound, game.ErrNoActiveTrade.Error())
		return
	}
	writeJSON(w, http.StatusOK, st.ActiveTrade)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var in controlMessage
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := in.event()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	up, err := s.game.Playback(r.Context(), ev)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.game.State().History
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(history) {
		history = history[len(history)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": history})
}

func (s *Server) handleLoanQuote(w http.ResponseWriter, r *http.Request) {
	amount, err1 := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	term, err2 := strconv.ParseInt(r.URL.Query().Get("term"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "amount and term query parameters must be integers")
		return
	}
	q, err := s.game.QuoteLoan(amount, term)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleTakeLoan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount    int64 `json:"amount"`
		TermTurns int64 `json:"termTurns"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := s.game.TakeLoan(r.Context(), in.Amount, in.TermTurns)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handlePayLoan(w http.ResponseWriter, r *http.Request) {
	paid, err := s.game.PayLoan(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paid": paid})
}

func (s *Server) handleShop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"offers": s.game.ShopOffers()})
}

func (s *Server) handleShopBuy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ItemID string `json:"itemId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.game.BuyCollectible(r.Context(), strings.TrimSpace(in.ItemID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleCollection(w http.ResponseWriter, _ *http.Request) {
	items := s.game.State().Collection
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"mergeGroups": game.MergeGroups(items),
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.game.Merge(r.Context(), in.IDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	blob, err := s.codec.Export(s.cfg.Player, s.game.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": blob})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Data string `json:"data"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	env, err := s.codec.Import(in.Data)
	if err != nil {
		var ie *export.ImportError
		if errors.As(err, &ie) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": ie.Error(), "kind": ie.Kind})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.Replace(r.Context(), env.GameState); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player": env.Player, "dashboard": s.game.Dashboard()})
}

func (s *Server) handleDevCommand(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := devcmd.Execute(r.Context(), s.game, in.Command)
	if err != nil {
		var usage *devcmd.UsageError
		switch {
		case errors.As(err, &usage), errors.Is(err, devcmd.ErrUnknownCommand):
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "help": devcmd.Help()})
		default:
			writeDomainError(w, err)
		}
		return
	}
	s.log.Info("dev command", "command", in.Command)
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrTradeInProgress),
		errors.Is(err, game.ErrNoActiveTrade),
		errors.Is(err, game.ErrPlaybackFinished),
		errors.Is(err, game.ErrSkipInProgress),
		errors.Is(err, game.ErrInvalidPlayback),
		errors.Is(err, game.ErrLoanActive):
		return http.StatusConflict
	case errors.Is(err, game.ErrAssetNotFound),
		errors.Is(err, game.ErrCollectibleNotFound),
		errors.Is(err, game.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInvalidUnits),
		errors.Is(err, game.ErrOverdraftUnits),
		errors.Is(err, game.ErrInvalidDuration),
		errors.Is(err, game.ErrInvalidLoanAmount),
		errors.Is(err, game.ErrInvalidLoanTerm),
		errors.Is(err, game.ErrNoLoan),
		errors.Is(err, game.ErrRerollLimit),
		errors.Is(err, game.ErrRerollBalance),
		errors.Is(err, game.ErrMergeIneligible),
		errors.Is(err, game.ErrMaxRarity),
		errors.Is(err, game.ErrInvalidSpeed),
		errors.Is(err, game.ErrUnknownEvent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
