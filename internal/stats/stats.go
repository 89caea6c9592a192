// Package stats computes financial metrics over projects. Every function is
// pure: results depend only on the arguments.
package stats

import (
	"math"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProjectStats holds the metrics of a single project. TotalRevenue is the
// base contract value; approved change orders are reported separately in
// TotalChangeOrders but count toward Profit and the percentages.
type ProjectStats struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalChangeOrders float64 `json:"totalChangeOrders"`
	TotalExpenses     float64 `json:"totalExpenses"`
	Profit            float64 `json:"profit"`
	ProfitMargin      float64 `json:"profitMargin"`
	LaborPercentage   float64 `json:"laborPercentage"`
}

// EffectiveRevenue is the base revenue plus approved change orders.
func (s ProjectStats) EffectiveRevenue() float64 {
	return dec(s.TotalRevenue).Add(dec(s.TotalChangeOrders)).InexactFloat64()
}

// totals is the decimal form of a project's sums.
type totals struct {
	revenue      decimal.Decimal
	changeOrders decimal.Decimal
	expenses     decimal.Decimal
	labor        decimal.Decimal
}

func (t totals) effective() decimal.Decimal {
	return t.revenue.Add(t.changeOrders)
}

func (t totals) profit() decimal.Decimal {
	return t.effective().Sub(t.expenses)
}

func sum(p project.Project) totals {
	t := totals{revenue: dec(p.TotalRevenue)}
	for _, co := range p.ChangeOrders {
		if co.Approved {
			t.changeOrders = t.changeOrders.Add(dec(co.Amount))
		}
	}
	for _, e := range p.Expenses {
		amount := dec(e.Amount)
		t.expenses = t.expenses.Add(amount)
		if e.Category == project.CategoryLabor {
			t.labor = t.labor.Add(amount)
		}
	}
	return t
}

// Calculate returns the metrics of p. Unapproved change orders contribute
// nothing. Percentages are 0 when the effective revenue is not positive.
func Calculate(p project.Project) ProjectStats {
	t := sum(p)
	effective := t.effective()
	profit := t.profit()

	return ProjectStats{
		TotalRevenue:      t.revenue.InexactFloat64(),
		TotalChangeOrders: t.changeOrders.InexactFloat64(),
		TotalExpenses:     t.expenses.InexactFloat64(),
		Profit:            profit.InexactFloat64(),
		ProfitMargin:      percent(profit, effective),
		LaborPercentage:   percent(t.labor, effective),
	}
}

// percent returns part/whole*100, or 0 when whole is not positive.
func percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(hundred).DivRound(whole, 8).InexactFloat64()
}

// dec converts a stored amount. Amounts are finite after load, but NaN or
// infinite values from a caller are treated as 0.
func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
