package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
	"github.com/Soujiro0/market-pulse-sub000/internal/client"
	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/export"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
	"github.com/Soujiro0/market-pulse-sub000/internal/playback"
	"github.com/Soujiro0/market-pulse-sub000/internal/storage"
	"github.com/Soujiro0/market-pulse-sub000/internal/tui"
)

const commandTimeout = 30 * time.Second

// session is opened lazily by the first command that needs the game.
type session struct {
	apiURL  string
	cfg     config.CLIConfig
	log     *slog.Logger
	game    backend
	closers []func()
}

func (s *session) open(ctx context.Context) (backend, error) {
	if s.game != nil {
		return s.game, nil
	}
	cfg, err := config.LoadCLIFromEnv()
	if err != nil {
		return nil, err
	}
	if s.apiURL != "" {
		cfg.APIURL = s.apiURL
	}
	s.cfg = cfg
	logger, closeLog := newLogger(cfg.GameConfig)
	s.log = logger
	s.closers = append(s.closers, closeLog)

	if cfg.APIURL != "" {
		s.log.Debug("using remote session", "api", cfg.APIURL)
		s.game = client.NewClient(cfg.APIURL)
		return s.game, nil
	}

	cat, err := catalog.FromPath(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := storage.Open(ctx, cfg.GameConfig, s.log)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeStore)

	svc, err := game.NewService(ctx, store, s.log, game.Options{
		Source:  game.NewSource(cfg.Seed),
		Catalog: &cat,
		Shop:    game.NewShopRotation(cfg.ShopRotation, nil),
	})
	if err != nil {
		return nil, err
	}
	s.game = &local{svc: svc, codec: export.DefaultCodec(), player: cfg.Player, dev: cfg.DevCommands}
	return s.game, nil
}

func (s *session) close() {
	closers := s.closers
	s.closers = nil
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

// newLogger writes to mp.log under the data dir, falling back to stderr.
func newLogger(cfg config.GameConfig) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	f, err := os.OpenFile(filepath.Join(cfg.DataDir, "mp.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := &session{}
	defer sess.close()

	root := &cobra.Command{
		Use:           "mp",
		Short:         "Market Pulse: trade, borrow and collect your way up the ranks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&sess.apiURL, "api", "", "play against a running mp-api instead of the local save (env MP_API_URL)")

	root.AddCommand(
		newDashCmd(sess),
		newMarketCmd(sess),
		newRerollCmd(sess),
		newBuyCmd(sess),
		newTradeCmd(sess),
		newTurnCmd(sess),
		newLoanCmd(sess),
		newShopCmd(sess),
		newCollectionCmd(sess),
		newHistoryCmd(sess),
		newExportCmd(sess),
		newImportCmd(sess),
		newDevCmd(sess),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(err.Error())
		sess.close()
		os.Exit(1)
	}
}

func newDashCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show balance, loan and rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			d, err := g.Dashboard(ctx)
			if err != nil {
				return err
			}
			renderDashboard(d)
			return nil
		},
	}
}

func newMarketCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "List this year's assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			st, err := g.State(ctx)
			if err != nil {
				return err
			}
			renderMarket(st)
			return nil
		},
	}
}

func newRerollCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "reroll",
		Short: "Pay to regenerate the market",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			res, err := g.Reroll(ctx)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Market rerolled for %s. %d reroll(s) left, next costs %s.", formatMoney(res.Cost), res.Remaining, formatMoney(res.NextCost)))
			st, err := g.State(ctx)
			if err != nil {
				return err
			}
			renderMarket(st)
			return nil
		},
	}
}

func newBuyCmd(sess *session) *cobra.Command {
	var units int64
	var days int
	var headless bool
	cmd := &cobra.Command{
		Use:   "buy [TICKER]",
		Short: "Open a trade and watch it play out",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			var ticker string
			if len(args) == 1 {
				ticker = strings.ToUpper(args[0])
			} else {
				st, err := g.State(ctx)
				if err != nil {
					return err
				}
				renderMarket(st)
				if ticker, err = promptTemplate(st.ActiveAssets); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("units") {
				if units, err = promptInt64("Units", 1); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("days") {
				v, err := promptInt64("Days (1-365)", 1)
				if err != nil {
					return err
				}
				days = int(v)
			}
			trade, err := g.ExecuteTrade(ctx, ticker, units, days)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("Bought %d x %s at %s for %s.", trade.Units, trade.Asset.Name, formatPrice(trade.EntryPrice), formatMoney(trade.Investment)))
			return watchTrade(ctx, sess, g, trade, headless)
		},
	}
	cmd.Flags().Int64VarP(&units, "units", "u", 1, "units to buy")
	cmd.Flags().IntVarP(&days, "days", "d", 30, "trade duration in days")
	cmd.Flags().BoolVar(&headless, "headless", false, "play back without the interactive screen")
	return cmd
}

func newTradeCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Inspect or resume the active trade",
	}

	var headless bool
	resume := &cobra.Command{
		Use:   "resume",
		Short: "Resume playback of a persisted trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			st, err := g.State(ctx)
			if err != nil {
				return err
			}
			if st.ActiveTrade == nil {
				return game.ErrNoActiveTrade
			}
			return watchTrade(ctx, sess, g, *st.ActiveTrade, headless)
		},
	}
	resume.Flags().BoolVar(&headless, "headless", false, "play back without the interactive screen")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show where the active trade stands",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			st, err := g.State(ctx)
			if err != nil {
				return err
			}
			if st.ActiveTrade == nil {
				printInfo("No trade in progress.")
				return nil
			}
			t := st.ActiveTrade
			fmt.Printf("%s: day %d/%d, %s, speed %dx, now %s\n", t.Asset.Name, t.Playback.Day, t.DurationDays, t.Playback.Status, t.Playback.Speed, formatPrice(t.Path[t.Playback.Day]))
			return nil
		},
	}

	cmd.AddCommand(resume, status)
	return cmd
}

func watchTrade(ctx context.Context, sess *session, g backend, trade game.ActiveTrade, headless bool) error {
	if !headless && term.IsTerminal(int(os.Stdout.Fd())) {
		res, err := tui.Run(ctx, g, trade)
		if err != nil {
			return err
		}
		if res.Detached {
			printWarn("Trade left running. Resume with `mp trade resume`.")
			return nil
		}
		if res.Record != nil {
			renderSettlement(*res.Record, res.Report)
		}
		return nil
	}

	// Nobody can press a key here.
	if trade.Playback.Status == game.PlaybackPaused {
		up, err := g.Playback(ctx, game.TogglePause{})
		if err != nil {
			return err
		}
		if up.Trade != nil {
			trade = *up.Trade
		}
	}

	var report *game.TurnReport
	lastShown := -1
	sched := playback.New(g, sess.log, func(u game.PlaybackUpdate) {
		if u.Report != nil {
			report = u.Report
		}
		if u.Trade == nil {
			return
		}
		day := u.Trade.Playback.Day
		step := max(u.Trade.DurationDays/10, 1)
		if day/step != lastShown {
			lastShown = day / step
			fmt.Printf("day %3d/%d  %s\n", day, u.Trade.DurationDays, formatPrice(u.Trade.Path[day]))
		}
	})
	rec, err := sched.Run(ctx, trade)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printWarn("Trade left running. Resume with `mp trade resume`.")
			return nil
		}
		return err
	}
	renderSettlement(rec, report)
	return nil
}

func newTurnCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "turn",
		Short: "Year management",
	}
	next := &cobra.Command{
		Use:   "next",
		Short: "Pass the year without trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			report, err := g.AdvanceTurn(ctx)
			if err != nil {
				return err
			}
			renderTurnReport(report)
			return nil
		},
	}
	cmd.AddCommand(next)
	return cmd
}

func newLoanCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Borrow and repay",
	}

	quote := &cobra.Command{
		Use:   "quote AMOUNT TERM",
		Short: "Preview a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, termTurns, err := parseLoanArgs(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			q, err := g.QuoteLoan(ctx, amount, termTurns)
			if err != nil {
				return err
			}
			renderLoanQuote(q)
			return nil
		},
	}

	take := &cobra.Command{
		Use:   "take AMOUNT TERM",
		Short: "Take a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, termTurns, err := parseLoanArgs(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			q, err := g.TakeLoan(ctx, amount, termTurns)
			if err != nil {
				return err
			}
			printSuccess("Loan approved.")
			renderLoanQuote(q)
			return nil
		},
	}

	pay := &cobra.Command{
		Use:   "pay",
		Short: "Repay the active loan in full",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			paid, err := g.PayLoan(ctx)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Paid %s. Loan closed.", formatMoney(paid)))
			return nil
		},
	}

	cmd.AddCommand(quote, take, pay)
	return cmd
}

func parseLoanArgs(args []string) (int64, int64, error) {
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("amount: %w", err)
	}
	termTurns, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("term: %w", err)
	}
	return amount, termTurns, nil
}

func newShopCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "Browse and buy collectibles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the current rotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			offers, err := g.ShopOffers(ctx)
			if err != nil {
				return err
			}
			renderShop(offers)
			return nil
		},
	}

	buy := &cobra.Command{
		Use:   "buy ITEM",
		Short: "Buy a collectible from the rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			c, err := g.BuyCollectible(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %s %s (%s) for %s.", c.Icon, c.Name, c.Rarity, formatMoney(c.PurchasePrice)))
			return nil
		},
	}

	cmd.AddCommand(list, buy)
	return cmd
}

func newCollectionCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage collectibles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List owned collectibles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			st, err := g.State(ctx)
			if err != nil {
				return err
			}
			renderCollection(st.Collection, game.MergeGroups(st.Collection))
			return nil
		},
	}

	merge := &cobra.Command{
		Use:   "merge [ID ID ID]",
		Short: "Merge matching collectibles into one of the next rarity",
		Long:  "Merge matching collectibles into one of the next rarity. With no IDs the first eligible group is merged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			ids := args
			if len(ids) == 0 {
				st, err := g.State(ctx)
				if err != nil {
					return err
				}
				groups := game.MergeGroups(st.Collection)
				if len(groups) == 0 {
					return game.ErrMergeIneligible
				}
				ids = groups[0]
			}
			c, err := g.Merge(ctx, ids)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Merged into %s %s (%s, level %d).", c.Icon, c.Name, c.Rarity, c.Level))
			return nil
		},
	}

	cmd.AddCommand(list, merge)
	return cmd
}

func newHistoryCmd(sess *session) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			history, err := g.History(ctx, limit)
			if err != nil {
				return err
			}
			renderHistory(history)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent trades to show, 0 for all")
	return cmd
}

func newExportCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write a portable save code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			code, err := g.Export(ctx)
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				fmt.Println(code)
				return nil
			}
			if err := os.WriteFile(args[0], []byte(code+"\n"), 0o600); err != nil {
				return err
			}
			printSuccess("Save code written to " + args[0])
			return nil
		},
	}
}

func newImportCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a save code, replacing the current game",
		Long:  "Load a save code, replacing the current game. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if args[0] == "-" {
				raw, err = io.ReadAll(os.Stdin)
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			res, err := g.Import(ctx, string(raw))
			if err != nil {
				return err
			}
			printSuccess("Imported save from " + res.Player + ".")
			renderDashboard(res.Dashboard)
			return nil
		},
	}
}

func newDevCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:    "dev COMMAND [ARGS]",
		Short:  "Run a developer command",
		Long:   "Run a developer command. Put -- before negative numbers.",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()
			g, err := sess.open(ctx)
			if err != nil {
				return err
			}
			out, err := g.Dev(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printSuccess(out)
			return nil
		},
	}
}
