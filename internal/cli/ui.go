package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockpilot/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle = lipgloss.NewStyle().Faint(true)
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func pctStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

// renderResult prints a human-readable summary of a finished run.
func renderResult(result *models.BacktestResult) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Backtest %s", result.StockID)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %.0f\n", labelStyle.Render("Initial capital:"), result.InitialCapital))
	sb.WriteString(fmt.Sprintf("%s %d\n", labelStyle.Render("Final equity:   "), result.FinalEquity))
	sb.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Total return:   "),
		pctStyle(result.TotalReturnPct).Render(fmt.Sprintf("%+.2f%%", result.TotalReturnPct))))
	sb.WriteString(fmt.Sprintf("%s %d\n", labelStyle.Render("Trades:         "), result.TradeCount))

	for _, trade := range result.Trades {
		line := fmt.Sprintf("  %s -> %s  %d @ %.2f -> %.2f  %+d (%+.2f%%)  %s",
			trade.EntryDate, trade.ExitDate, trade.Shares,
			trade.EntryPrice, trade.ExitPrice, trade.Profit, trade.ProfitPct, trade.Reason)
		if trade.Profit < 0 {
			line = lossStyle.Render(line)
		} else {
			line = gainStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
