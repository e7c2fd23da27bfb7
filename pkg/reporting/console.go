package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tygwan/risk-engine/internal/portfolio"
	"github.com/tygwan/risk-engine/internal/risk"
)

// ConsoleReporter renders risk summaries and decision logs as terminal
// tables
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintRiskSummary prints the current portfolio risk posture. A nil
// metrics skips the performance section (persisted state does not carry
// it).
func (r *ConsoleReporter) PrintRiskSummary(snapshot portfolio.Snapshot, metrics *risk.TradingMetrics) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RISK SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Portfolio Value", fmt.Sprintf("$%.2f", snapshot.TotalValue)},
		{"📈 Peak Value", fmt.Sprintf("$%.2f", snapshot.PeakValue)},
		{"📉 Drawdown", fmt.Sprintf("%.2f%%", snapshot.Drawdown*100)},
		{"🚦 Breaker State", snapshot.BreakerState},
		{"🎯 Total Exposure", fmt.Sprintf("$%.2f", snapshot.TotalExposure)},
		{"📂 Open Positions", fmt.Sprintf("%d", len(snapshot.OpenPositions))},
		{"❌ Consecutive Losses", fmt.Sprintf("%d", snapshot.ConsecutiveLosses)},
	})

	if metrics != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"🔄 Total Trades", fmt.Sprintf("%d", metrics.TotalTrades)},
			{"✅ Win Rate", fmt.Sprintf("%.1f%%", metrics.WinRate()*100)},
			{"📈 Avg Win", fmt.Sprintf("%.2f%%", metrics.AvgWinReturn*100)},
			{"📉 Avg Loss", fmt.Sprintf("%.2f%%", metrics.AvgLossReturn*100)},
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, WidthMax: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintOpenPositions lists every open position with its liquidation
// assessment when one is available
func (r *ConsoleReporter) PrintOpenPositions(snapshot portfolio.Snapshot, assessments map[string]risk.LiquidationAssessment) {
	if len(snapshot.OpenPositions) == 0 {
		fmt.Println("No open positions.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Side", "Entry", "Notional", "Leverage", "Liq Price", "Distance", "Tier"})

	for symbol, pos := range snapshot.OpenPositions {
		liqPrice := "-"
		distance := "-"
		tier := "-"
		if a, ok := assessments[symbol]; ok {
			liqPrice = fmt.Sprintf("%.2f", a.LiquidationPrice)
			distance = fmt.Sprintf("%.1f%%", a.DistancePct*100)
			tier = a.Tier.String()
		}
		t.AppendRow(table.Row{
			symbol,
			pos.Side,
			fmt.Sprintf("%.2f", pos.EntryPrice),
			fmt.Sprintf("$%.2f", pos.Size),
			fmt.Sprintf("%.0fx", pos.Leverage),
			liqPrice,
			distance,
			tier,
		})
	}

	t.Render()
	fmt.Println()
}

// PrintDecisionLog prints the most recent assessments, newest last
func (r *ConsoleReporter) PrintDecisionLog(assessments []risk.RiskAssessment, limit int) {
	if len(assessments) == 0 {
		fmt.Println("No decisions recorded.")
		return
	}
	if limit > 0 && len(assessments) > limit {
		assessments = assessments[len(assessments)-limit:]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("DECISION LOG")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Outcome", "Rule", "Risk", "Recommended", "Reason"})

	for _, a := range assessments {
		outcome := "✅ APPROVED"
		rule := "-"
		if !a.Approved {
			outcome = "❌ REJECTED"
			rule = string(a.ViolatedRule)
		}
		t.AppendRow(table.Row{
			a.Timestamp.Format("2006-01-02 15:04:05"),
			outcome,
			rule,
			fmt.Sprintf("%.2f", a.RiskScore),
			fmt.Sprintf("$%.2f", a.RecommendedSize),
			truncate(a.Reason, 60),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, WidthMax: 62, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintSessionHeader prints report metadata
func (r *ConsoleReporter) PrintSessionHeader(sessionStart, savedAt time.Time) {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("📊 RISK ENGINE REPORT\n")
	fmt.Printf("Session start: %s\n", sessionStart.Format(time.RFC3339))
	fmt.Printf("State saved:   %s\n", savedAt.Format(time.RFC3339))
	fmt.Println(strings.Repeat("=", 50))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
