package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
	"github.com/Soujiro0/market-pulse-sub000/internal/playback"
)

const sparkWidth = 48

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)

	sparkRunes = []rune("▁▂▃▄▅▆▇█")
)

type tickMsg struct{ seq int }

// Result is what the screen left behind. Detached means the user quit before
// settlement; the trade stays persisted and can be resumed.
type Result struct {
	Record   *game.TradeRecord
	Report   *game.TurnReport
	Detached bool
}

type Model struct {
	ctx   context.Context
	drv   playback.Driver
	trade game.ActiveTrade
	bar   progress.Model
	delay func(days, speed int) time.Duration

	seq    int
	notice string
	result Result
	err    error
}

func New(ctx context.Context, drv playback.Driver, trade game.ActiveTrade) Model {
	return Model{
		ctx:   ctx,
		drv:   drv,
		trade: trade,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(sparkWidth)),
		delay: game.DayDelay,
	}
}

// Run shows the playback screen until the trade settles or the user detaches.
func Run(ctx context.Context, drv playback.Driver, trade game.ActiveTrade) (Result, error) {
	final, err := tea.NewProgram(New(ctx, drv, trade), tea.WithContext(ctx)).Run()
	if err != nil {
		return Result{Detached: true}, err
	}
	m := final.(Model)
	return m.result, m.err
}

func (m Model) Init() tea.Cmd {
	return m.schedule()
}

func (m Model) schedule() tea.Cmd {
	if m.trade.Playback.Status != game.PlaybackRunning {
		return nil
	}
	seq := m.seq
	return tea.Tick(m.delay(m.trade.DurationDays, m.trade.Playback.Speed), func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		return m.apply(game.Tick{})
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.result.Detached = true
			return m, tea.Quit
		case "p", " ":
			return m.apply(game.TogglePause{})
		case "s":
			return m.apply(game.Skip{})
		case "o":
			return m.apply(game.PullOut{})
		case "1":
			return m.apply(game.SetSpeed{Speed: 1})
		case "2":
			return m.apply(game.SetSpeed{Speed: 2})
		case "4":
			return m.apply(game.SetSpeed{Speed: 4})
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 8
		if w > sparkWidth {
			w = sparkWidth
		}
		if w > 10 {
			m.bar.Width = w
		}
	}
	return m, nil
}

func (m Model) apply(ev game.PlaybackEvent) (tea.Model, tea.Cmd) {
	up, err := m.drv.Playback(m.ctx, ev)
	if err != nil {
		if errors.Is(err, game.ErrNoActiveTrade) || errors.Is(err, game.ErrPlaybackFinished) {
			m.err = err
			return m, tea.Quit
		}
		m.notice = err.Error()
		return m, nil
	}
	m.notice = ""
	if up.Record != nil {
		m.result.Record = up.Record
		m.result.Report = up.Report
		return m, tea.Quit
	}
	if up.Trade != nil {
		m.trade.Playback = up.Trade.Playback
	}
	m.seq++
	return m, m.schedule()
}

func (m Model) View() string {
	t := m.trade
	pb := t.Playback
	price := t.Path[pb.Day]
	change := 0.0
	if t.EntryPrice > 0 {
		change = (price - t.EntryPrice) / t.EntryPrice * 100
	}
	value := price * float64(t.Units)
	pnl := value - float64(t.Investment)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n", titleStyle.Render(t.Asset.Icon+" "+t.Asset.Name), labelStyle.Render(t.Asset.TemplateID), labelStyle.Render(t.Asset.Rarity.String()))
	fmt.Fprintf(&b, "%s %d/%d   %s %.2f   %s\n", labelStyle.Render("day"), pb.Day, t.DurationDays, labelStyle.Render("price"), price, signed(change, "%+.2f%%"))
	fmt.Fprintf(&b, "%s %.2f   %s %.2f   %s %s\n", labelStyle.Render("peak"), pb.Peak, labelStyle.Render("trough"), pb.Trough, labelStyle.Render("p/l"), signed(pnl, "%+.0f"))
	b.WriteString(sparkline(t.Path[:pb.Day+1], sparkWidth) + "\n")
	b.WriteString(m.bar.ViewAs(float64(pb.Day)/float64(max(1, t.DurationDays))) + "\n")
	fmt.Fprintf(&b, "%s %s   %s %dx\n", labelStyle.Render("status"), pb.Status, labelStyle.Render("speed"), pb.Speed)
	if m.notice != "" {
		b.WriteString(warnStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle.Render("p pause · s skip · o pull out (25% fee on gains) · 1/2/4 speed · q detach"))
	return frameStyle.Render(b.String()) + "\n"
}

func signed(v float64, format string) string {
	text := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return upStyle.Render(text)
	case v < 0:
		return downStyle.Render(text)
	default:
		return text
	}
}

// sparkline renders the tail of prices scaled to their own range.
func sparkline(prices []float64, width int) string {
	if len(prices) > width {
		prices = prices[len(prices)-width:]
	}
	if len(prices) == 0 {
		return ""
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	out := make([]rune, len(prices))
	for i, p := range prices {
		idx := 0
		if hi > lo {
			idx = int((p - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}
