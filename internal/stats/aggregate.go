package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/shopspring/decimal"
)

// Summary aggregates a set of projects. BaseRevenue excludes change orders;
// TotalRevenueIncludingChangeOrders adds the approved ones.
type Summary struct {
	Count                             int     `json:"count"`
	BaseRevenue                       float64 `json:"baseRevenue"`
	TotalChangeOrders                 float64 `json:"totalChangeOrders"`
	TotalRevenueIncludingChangeOrders float64 `json:"totalRevenueIncludingChangeOrders"`
	TotalExpenses                     float64 `json:"totalExpenses"`
	TotalProfit                       float64 `json:"totalProfit"`
	AveragePerProject                 float64 `json:"averagePerProject"`
	OverallMargin                     float64 `json:"overallMargin"`
}

// Summarize reduces projects to collection totals. AveragePerProject is the
// revenue including change orders divided by the count, and OverallMargin is
// total profit over the same revenue. Both are 0 for an empty set.
func Summarize(projects []project.Project) Summary {
	var revenue, changeOrders, expenses, profit decimal.Decimal
	for _, p := range projects {
		t := sum(p)
		revenue = revenue.Add(t.revenue)
		changeOrders = changeOrders.Add(t.changeOrders)
		expenses = expenses.Add(t.expenses)
		profit = profit.Add(t.profit())
	}
	including := revenue.Add(changeOrders)

	s := Summary{
		Count:                             len(projects),
		BaseRevenue:                       revenue.InexactFloat64(),
		TotalChangeOrders:                 changeOrders.InexactFloat64(),
		TotalRevenueIncludingChangeOrders: including.InexactFloat64(),
		TotalExpenses:                     expenses.InexactFloat64(),
		TotalProfit:                       profit.InexactFloat64(),
		OverallMargin:                     percent(profit, including),
	}
	if len(projects) > 0 {
		s.AveragePerProject = including.DivRound(decimal.NewFromInt(int64(len(projects))), 8).InexactFloat64()
	}
	return s
}

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Category project.Category `json:"category"`
	Amount   float64          `json:"amount"`
	Count    int              `json:"count"`
}

// ByCategory sums expenses by category across projects. Every category is
// present, in project.Categories order.
func ByCategory(projects []project.Project) []CategoryTotal {
	amounts := make(map[project.Category]decimal.Decimal, len(project.Categories))
	counts := make(map[project.Category]int, len(project.Categories))
	for _, p := range projects {
		for _, e := range p.Expenses {
			c := e.Category
			if !c.Valid() {
				c = project.CategoryOther
			}
			amounts[c] = amounts[c].Add(dec(e.Amount))
			counts[c]++
		}
	}

	out := make([]CategoryTotal, 0, len(project.Categories))
	for _, c := range project.Categories {
		out = append(out, CategoryTotal{Category: c, Amount: amounts[c].InexactFloat64(), Count: counts[c]})
	}
	return out
}

// ClientTotal is the revenue attributed to one client.
type ClientTotal struct {
	Client       string  `json:"client"`
	BaseRevenue  float64 `json:"baseRevenue"`
	ChangeOrders float64 `json:"changeOrders"`
	Count        int     `json:"count"`
}

// TotalRevenue is the base revenue plus approved change orders.
func (c ClientTotal) TotalRevenue() float64 {
	return dec(c.BaseRevenue).Add(dec(c.ChangeOrders)).InexactFloat64()
}

// ByClient groups base revenue, approved change orders and project count by
// client, sorted by client name.
func ByClient(projects []project.Project) []ClientTotal {
	type acc struct {
		revenue, changeOrders decimal.Decimal
		count                 int
	}
	groups := make(map[string]*acc)
	for _, p := range projects {
		g, ok := groups[p.Client]
		if !ok {
			g = &acc{}
			groups[p.Client] = g
		}
		t := sum(p)
		g.revenue = g.revenue.Add(t.revenue)
		g.changeOrders = g.changeOrders.Add(t.changeOrders)
		g.count++
	}

	out := make([]ClientTotal, 0, len(groups))
	for client, g := range groups {
		out = append(out, ClientTotal{
			Client:       client,
			BaseRevenue:  g.revenue.InexactFloat64(),
			ChangeOrders: g.changeOrders.InexactFloat64(),
			Count:        g.count,
		})
	}
	slices.SortFunc(out, func(a, b ClientTotal) int { return cmp.Compare(a.Client, b.Client) })
	return out
}

// MonthTotal aggregates the projects that started in one calendar month.
type MonthTotal struct {
	Month        string  `json:"month"` // YYYY-MM
	Count        int     `json:"count"`
	BaseRevenue  float64 `json:"baseRevenue"`
	ChangeOrders float64 `json:"changeOrders"`
	Expenses     float64 `json:"expenses"`
	Profit       float64 `json:"profit"`
}

// ByMonth buckets projects by the UTC month of their start date, oldest
// month first. Months without projects are omitted.
func ByMonth(projects []project.Project) []MonthTotal {
	type acc struct {
		revenue, changeOrders, expenses, profit decimal.Decimal
		count                                   int
	}
	groups := make(map[string]*acc)
	for _, p := range projects {
		key := monthKey(p.ProjectStartDate)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		t := sum(p)
		g.revenue = g.revenue.Add(t.revenue)
		g.changeOrders = g.changeOrders.Add(t.changeOrders)
		g.expenses = g.expenses.Add(t.expenses)
		g.profit = g.profit.Add(t.profit())
		g.count++
	}

	out := make([]MonthTotal, 0, len(groups))
	for month, g := range groups {
		out = append(out, MonthTotal{
			Month:        month,
			Count:        g.count,
			BaseRevenue:  g.revenue.InexactFloat64(),
			ChangeOrders: g.changeOrders.InexactFloat64(),
			Expenses:     g.expenses.InexactFloat64(),
			Profit:       g.profit.InexactFloat64(),
		})
	}
	slices.SortFunc(out, func(a, b MonthTotal) int { return cmp.Compare(a.Month, b.Month) })
	return out
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
