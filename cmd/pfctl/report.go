package main

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// printMarkdown renders doc for the terminal, falling back to the raw
// markdown when rendering fails or -plain is set.
func printMarkdown(doc string) {
	if !*plainOutput {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(doc); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Print(doc)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

// pct formats a fraction as a percentage; undefined values print as n/a.
func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// num formats a ratio; undefined values print as n/a.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func quantity(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}

func table(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func warnings(b *strings.Builder, ws []model.Warning) {
	if len(ws) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	for _, w := range ws {
		fmt.Fprintf(b, "- **%s** %s\n", w.Code, w.Message)
	}
	b.WriteString("\n")
}

func failures(b *strings.Builder, fs []model.FetchFailure) {
	if len(fs) == 0 {
		return
	}
	b.WriteString("## Unavailable\n\n")
	for _, f := range fs {
		fmt.Fprintf(b, "- %s: %s\n", f.Ticker, f.Error)
	}
	b.WriteString("\n")
}

func windowTitle(title string, w model.Window) string {
	return fmt.Sprintf("# %s %s to %s\n\n", title, w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// ValuationMarkdown renders a valuation snapshot.
func ValuationMarkdown(s model.ValuationSnapshot) string {
	var b strings.Builder
	b.WriteString("# Portfolio Valuation\n\n")

	rows := make([][]string, 0, len(s.Positions)+1)
	for _, p := range s.Positions {
		ticker := p.Ticker
		if p.Stale {
			ticker += " (stale)"
		}
		rows = append(rows, []string{ticker, quantity(p.Quantity), money(p.Price), money(p.MarketValue), pct(p.AllocationPct), pct(p.TargetAllocation)})
	}
	rows = append(rows, []string{"Cash", "", "", money(s.CashBalance), pct(s.CashAllocationPct), ""})
	table(&b, []string{"Ticker", "Quantity", "Price", "Market Value", "Allocation", "Target"}, rows)

	table(&b, []string{"", "Value"}, [][]string{
		{"Market value", money(s.MarketValue)},
		{"Total value", money(s.TotalValue)},
		{"Dividends", money(s.TotalDividends)},
		{"Transaction costs", money(s.TotalTransactionCost)},
		{"Net value", money(s.NetValue)},
	})

	if len(s.Excluded) > 0 {
		b.WriteString("## Excluded\n\n")
		for _, e := range s.Excluded {
			fmt.Fprintf(&b, "- %s (%s shares): %s\n", e.Ticker, quantity(e.Quantity), e.Reason)
		}
		b.WriteString("\n")
	}
	warnings(&b, s.Warnings)
	return b.String()
}

// RiskMarkdown renders a risk report.
func RiskMarkdown(r model.RiskReport) string {
	var b strings.Builder
	b.WriteString(windowTitle("Risk", r.Window))
	fmt.Fprintf(&b, "Benchmark %s, risk-free rate %s, VaR confidence %s\n\n", r.Benchmark, pct(r.RiskFreeRate), pct(r.Confidence))

	row := func(m model.RiskMetrics) []string {
		varAmount := "n/a"
		if !math.IsNaN(m.VaRAmount) {
			varAmount = money(m.VaRAmount)
		}
		return []string{m.Ticker, fmt.Sprint(m.Observations), pct(m.AnnualizedVolatility), num(m.SharpeRatio),
			num(m.Beta), pct(m.Alpha), num(m.RSquared), pct(m.VaR), varAmount, pct(m.MaxDrawdown)}
	}
	rows := make([][]string, 0, len(r.Positions)+1)
	for _, m := range r.Positions {
		rows = append(rows, row(m))
	}
	rows = append(rows, row(r.Portfolio))
	table(&b, []string{"Ticker", "N", "Volatility (ann.)", "Sharpe", "Beta", "Alpha", "R²", "VaR", "VaR Amount", "Max Drawdown"}, rows)

	if len(r.Stale) > 0 {
		fmt.Fprintf(&b, "Stale data: %s\n\n", strings.Join(r.Stale, ", "))
	}
	failures(&b, r.Failures)
	warnings(&b, r.Warnings)
	return b.String()
}

// PerformanceMarkdown renders a performance report.
func PerformanceMarkdown(r model.PerformanceReport) string {
	var b strings.Builder
	b.WriteString(windowTitle("Performance", r.Window))

	row := func(m model.PerformanceMetrics) []string {
		return []string{m.Ticker, fmt.Sprint(m.Observations), pct(m.TotalReturn), pct(m.AnnualizedReturn),
			pct(m.AnnualizedVolatility), num(m.SharpeRatio), pct(m.MaxDrawdown)}
	}
	rows := make([][]string, 0, len(r.Positions)+2)
	for _, m := range r.Positions {
		rows = append(rows, row(m))
	}
	rows = append(rows, row(r.Portfolio))
	if r.Benchmark != nil {
		rows = append(rows, row(*r.Benchmark))
	}
	table(&b, []string{"Ticker", "N", "Total Return", "Annualized", "Volatility (ann.)", "Sharpe", "Max Drawdown"}, rows)

	if len(r.Tickers) > 1 {
		b.WriteString("## Correlation\n\n")
		corr := make([][]string, len(r.Tickers))
		for i, t := range r.Tickers {
			corr[i] = append([]string{t}, make([]string, len(r.Tickers))...)
			for j := range r.Tickers {
				corr[i][j+1] = num(r.Correlation[i][j])
			}
		}
		table(&b, append([]string{""}, r.Tickers...), corr)
	}
	failures(&b, r.Failures)
	warnings(&b, r.Warnings)
	return b.String()
}

// RebalanceMarkdown renders a rebalance plan.
func RebalanceMarkdown(p model.RebalancePlan) string {
	var b strings.Builder
	b.WriteString("# Rebalance Plan\n\n")
	fmt.Fprintf(&b, "Total value %s, cash %s, buffer %s\n\n", money(p.TotalValue), money(p.CashBalance), money(p.CashBuffer))

	if len(p.Actions) == 0 {
		b.WriteString("No trades needed.\n\n")
	} else {
		rows := make([][]string, len(p.Actions))
		for i, a := range p.Actions {
			direction := string(a.Direction)
			if a.Constrained {
				direction += "*"
			}
			rows[i] = []string{direction, a.Ticker, quantity(a.Quantity), money(a.Price), money(a.GrossValue),
				money(a.TransactionCost), money(a.EstimatedCost), pct(a.CurrentAllocation), pct(a.TargetAllocation)}
		}
		table(&b, []string{"Action", "Ticker", "Quantity", "Price", "Gross", "Fee", "Cash Impact", "Current", "Target"}, rows)
		b.WriteString("\\* reduced to keep the cash buffer\n\n")
	}

	fmt.Fprintf(&b, "Projected cash %s, total transaction cost %s\n\n", money(p.ProjectedCash), money(p.TotalTransactionCost))
	warnings(&b, p.Warnings)
	return b.String()
}

// SearchMarkdown renders ticker search results.
func SearchMarkdown(query string, matches []model.SymbolMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search results for %q\n\n", query)
	if len(matches) == 0 {
		b.WriteString("No results found.\n")
		return b.String()
	}
	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{m.Ticker, m.Name, m.Exchange, m.Type}
	}
	table(&b, []string{"Ticker", "Name", "Exchange", "Type"}, rows)
	return b.String()
}
