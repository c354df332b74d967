package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptTemplate(assets []game.Asset) (string, error) {
	for {
		id, err := promptRequired("Asset ticker")
		if err != nil {
			return "", err
		}
		id = strings.ToUpper(strings.TrimSpace(id))
		for _, a := range assets {
			if a.TemplateID == id {
				return id, nil
			}
		}
		printWarn(id + " is not in the current market.")
	}
}

func renderDashboard(d game.Dashboard) {
	accent.Printf("\n== YEAR %d · %s ==\n", d.Turn, strings.ToUpper(d.Climate.Name))
	fmt.Printf("Balance:          %s\n", colorizeMoney(d.Balance))
	fmt.Printf("Net Worth:        %s\n", colorizeMoney(d.NetWorth))
	fmt.Printf("Realized P/L:     %s\n", colorizeSigned(d.RealizedProfit))
	fmt.Printf("Collection Value: %s\n", formatMoney(d.CollectionValue))
	if d.LoanOutstanding > 0 {
		due := fmt.Sprintf("%s due year %d", formatMoney(d.LoanOutstanding), d.LoanDueTurn)
		if d.Turn > d.LoanDueTurn {
			fmt.Printf("Loan:             %s\n", danger.Sprint(due+" (OVERDUE)"))
		} else {
			fmt.Printf("Loan:             %s\n", warn.Sprint(due))
		}
	} else {
		fmt.Printf("Loan:             %s\n", neutral.Sprint("none"))
	}
	fmt.Printf("Rank:             %s (%s xp, %s to next)\n", accent.Sprint(d.RankTitle), comma(d.XP), comma(game.XPToNextRank(d.XP)))
	fmt.Printf("Trades Closed:    %d\n", d.TradesClosed)
	fmt.Printf("Rerolls Left:     %d (next costs %s)\n", d.RerollsRemaining, formatMoney(d.NextRerollCost))
	if d.TradeInProgress {
		printWarn("A trade is in progress. Run `mp trade resume`.")
	}
	fmt.Println()
}

func renderMarket(st game.GameState) {
	c := st.Climate
	accent.Printf("\n== MARKET · YEAR %d ==\n", st.Turn)
	fmt.Printf("Climate: %s (momentum %+.2f, volatility x%.1f)\n\n", accent.Sprint(c.Name), c.MomentumBias, c.VolatilityMultiplier)
	fmt.Printf("%-8s %-24s %-14s %-11s %12s %6s %6s %5s\n", "TICKER", "NAME", "SECTOR", "RARITY", "PRICE", "VOL", "MOM", "HYPE")
	for _, a := range st.ActiveAssets {
		fmt.Printf("%-8s %-24s %-14s %-11s %12s %6.2f %6.2f %5d\n",
			a.TemplateID,
			truncate(a.Icon+" "+a.Name, 24),
			truncate(a.Sector, 14),
			colorizeRarity(a.Rarity),
			formatPrice(a.CurrentPrice),
			a.Volatility,
			a.Momentum,
			a.Hype,
		)
	}
	fmt.Println()
}

func renderSettlement(rec game.TradeRecord, report *game.TurnReport) {
	accent.Println("\n== TRADE CLOSED ==")
	fmt.Printf("Asset:     %s (%s)\n", rec.AssetName, colorizeRarity(rec.Rarity))
	fmt.Printf("Held:      %d/%d days\n", rec.DaysHeld, rec.DurationDays)
	fmt.Printf("Buy/Sell:  %s -> %s\n", formatPrice(rec.BuyPrice), formatPrice(rec.SellPrice))
	fmt.Printf("Peak:      %s  Trough: %s\n", formatPrice(rec.Peak), formatPrice(rec.Trough))
	fmt.Printf("Profit:    %s\n", colorizeSigned(rec.Profit))
	if rec.PulledOut && rec.Fee > 0 {
		fmt.Printf("Fee:       %s (early pull-out)\n", danger.Sprint(formatMoney(rec.Fee)))
	}
	if report != nil {
		renderTurnReport(*report)
	}
}

func renderTurnReport(r game.TurnReport) {
	fmt.Printf("\nYear %d begins: %s\n", r.Turn, accent.Sprint(r.Climate.Name))
	for _, ev := range r.Events {
		switch ev.Kind {
		case game.EventLoanDefault:
			printError(ev.Message)
		case game.EventLoanPenalty:
			printWarn(ev.Message)
		default:
			printInfo(ev.Message)
		}
	}
	fmt.Println()
}

func renderHistory(history []game.TradeRecord) {
	accent.Println("\n== TRADE HISTORY ==")
	if len(history) == 0 {
		printInfo("No trades yet.")
		return
	}
	fmt.Printf("%-5s %-8s %-20s %-11s %6s %10s %10s %12s %4s\n", "YEAR", "TICKER", "NAME", "RARITY", "DAYS", "BUY", "SELL", "PROFIT", "OUT")
	for _, h := range history {
		out := ""
		if h.PulledOut {
			out = "yes"
		}
		fmt.Printf("%-5d %-8s %-20s %-11s %6d %10s %10s %12s %4s\n",
			h.Turn,
			h.TemplateID,
			truncate(h.AssetName, 20),
			colorizeRarity(h.Rarity),
			h.DaysHeld,
			formatPrice(h.BuyPrice),
			formatPrice(h.SellPrice),
			colorizeSigned(h.Profit),
			out,
		)
	}
	fmt.Println()
}

func renderCollection(items []game.Collectible, groups [][]string) {
	accent.Println("\n== COLLECTION ==")
	if len(items) == 0 {
		printInfo("Nothing collected yet. Try `mp shop list`.")
		return
	}
	fmt.Printf("%-36s %-22s %-11s %5s %10s\n", "ID", "ITEM", "RARITY", "LVL", "VALUE")
	for _, c := range items {
		fmt.Printf("%-36s %-22s %-11s %5d %10s\n", c.ID, truncate(c.Icon+" "+c.Name, 22), colorizeRarity(c.Rarity), c.Level, formatMoney(c.PurchasePrice))
	}
	if len(groups) > 0 {
		printSuccess(fmt.Sprintf("\n%d merge group(s) ready. Run `mp collection merge` to merge the first.", len(groups)))
	}
	fmt.Println()
}

func renderShop(offers []game.ShopOffer) {
	accent.Println("\n== COLLECTIBLE SHOP ==")
	if len(offers) == 0 {
		printInfo("The shop is empty.")
		return
	}
	fmt.Printf("%-14s %-22s %-11s %10s\n", "ITEM", "NAME", "RARITY", "PRICE")
	for _, o := range offers {
		fmt.Printf("%-14s %-22s %-11s %10s\n", o.ItemID, truncate(o.Icon+" "+o.Name, 22), colorizeRarity(o.Rarity), formatMoney(o.Price))
	}
	fmt.Printf("\nRotates at %s\n\n", offers[0].ExpiresAt.Local().Format("15:04:05"))
}

func renderLoanQuote(q game.LoanQuote) {
	fmt.Printf("Amount:   %s\n", formatMoney(q.Amount))
	fmt.Printf("Term:     %d years at %.0f%%\n", q.TermTurns, q.InterestRate*100)
	fmt.Printf("Repay:    %s by year %d\n", formatMoney(q.TotalDue), q.DueTurn)
}

func colorizeRarity(r game.Rarity) string {
	switch r {
	case game.Unicorn:
		return color.New(color.FgMagenta, color.Bold).Sprint(r.String())
	case game.Disruptive:
		return color.New(color.FgHiMagenta).Sprint(r.String())
	case game.Emerging:
		return success.Sprint(r.String())
	default:
		return neutral.Sprint(r.String())
	}
}

func colorizeMoney(v int64) string {
	if v < 0 {
		return danger.Sprint(formatMoney(v))
	}
	return neutral.Sprint(formatMoney(v))
}

func colorizeSigned(v int64) string {
	text := signedMoney(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMoney(v int64) string {
	if v < 0 {
		return "-$" + comma(-v)
	}
	return "$" + comma(v)
}

func signedMoney(v int64) string {
	if v > 0 {
		return "+" + formatMoney(v)
	}
	return formatMoney(v)
}

func formatPrice(v float64) string {
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}
	return fmt.Sprintf("$%s.%02d", comma(whole), cents)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
