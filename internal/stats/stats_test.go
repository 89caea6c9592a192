package stats_test

import (
	"math"
	"testing"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/stats"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleProject() project.Project {
	return project.Project{
		ID:               "p1",
		Name:             "Kitchen",
		Client:           "Private Owner",
		TotalRevenue:     10000,
		ProjectStartDate: day(2024, 3, 10),
		Expenses: []project.Expense{
			{ID: "e1", Category: project.CategoryMaterials, Amount: 3000},
			{ID: "e2", Category: project.CategoryLabor, Amount: 1000},
		},
		ChangeOrders: []project.ChangeOrder{
			{ID: "c1", Amount: 2000, Approved: true},
			{ID: "c2", Amount: 500, Approved: false},
		},
	}
}

func TestCalculate(t *testing.T) {
	s := stats.Calculate(sampleProject())

	require.Equal(t, 10000.0, s.TotalRevenue)
	require.Equal(t, 2000.0, s.TotalChangeOrders)
	require.Equal(t, 4000.0, s.TotalExpenses)
	require.Equal(t, 8000.0, s.Profit)
	require.InDelta(t, 66.6667, s.ProfitMargin, 0.001)
	require.InDelta(t, 8.3333, s.LaborPercentage, 0.001)
	require.Equal(t, 12000.0, s.EffectiveRevenue())
}

func TestCalculateZeroRevenue(t *testing.T) {
	s := stats.Calculate(project.Project{
		Expenses: []project.Expense{{Category: project.CategoryLabor, Amount: 250}},
	})

	require.Equal(t, -250.0, s.Profit)
	require.Zero(t, s.ProfitMargin)
	require.Zero(t, s.LaborPercentage)
}

func TestCalculateEmptyProject(t *testing.T) {
	s := stats.Calculate(project.Project{TotalRevenue: 500})

	require.Equal(t, stats.ProjectStats{TotalRevenue: 500, Profit: 500, ProfitMargin: 100}, s)
}

func TestCalculateExactDecimalSums(t *testing.T) {
	p := project.Project{TotalRevenue: 0.3}
	for i := 0; i < 3; i++ {
		p.Expenses = append(p.Expenses, project.Expense{Category: project.CategoryOther, Amount: 0.1})
	}

	s := stats.Calculate(p)
	require.Equal(t, 0.3, s.TotalExpenses)
	require.Zero(t, s.Profit)
}

func TestCalculateIgnoresNonFiniteAmounts(t *testing.T) {
	p := project.Project{
		TotalRevenue: 100,
		Expenses:     []project.Expense{{Category: project.CategoryOther, Amount: math.NaN()}},
	}

	s := stats.Calculate(p)
	require.Zero(t, s.TotalExpenses)
	require.Equal(t, 100.0, s.Profit)
}

func TestSummarize(t *testing.T) {
	second := project.Project{
		ID:               "p2",
		Client:           "Ace Builders",
		TotalRevenue:     4000,
		ProjectStartDate: day(2024, 5, 2),
		Expenses:         []project.Expense{{Category: project.CategoryContractors, Amount: 1000}},
	}

	s := stats.Summarize([]project.Project{sampleProject(), second})

	require.Equal(t, 2, s.Count)
	require.Equal(t, 14000.0, s.BaseRevenue)
	require.Equal(t, 2000.0, s.TotalChangeOrders)
	require.Equal(t, 16000.0, s.TotalRevenueIncludingChangeOrders)
	require.Equal(t, 5000.0, s.TotalExpenses)
	require.Equal(t, 11000.0, s.TotalProfit)
	require.Equal(t, 8000.0, s.AveragePerProject)
	require.InDelta(t, 68.75, s.OverallMargin, 0.0001)
}

func TestSummarizeEmpty(t *testing.T) {
	require.Equal(t, stats.Summary{}, stats.Summarize(nil))
}

func TestByCategory(t *testing.T) {
	extra := project.Project{Expenses: []project.Expense{
		{Category: project.CategoryMaterials, Amount: 500},
		{Category: "unknown", Amount: 20},
	}}

	totals := stats.ByCategory([]project.Project{sampleProject(), extra})

	require.Len(t, totals, len(project.Categories))
	for i, c := range project.Categories {
		require.Equal(t, c, totals[i].Category)
	}
	require.Equal(t, stats.CategoryTotal{Category: project.CategoryMaterials, Amount: 3500, Count: 2}, totals[0])
	require.Equal(t, stats.CategoryTotal{Category: project.CategoryContractors}, totals[1])
	require.Equal(t, stats.CategoryTotal{Category: project.CategoryLabor, Amount: 1000, Count: 1}, totals[2])
	require.Equal(t, stats.CategoryTotal{Category: project.CategoryOther, Amount: 20, Count: 1}, totals[4])
}

func TestByClient(t *testing.T) {
	other := project.Project{Client: "Ace Builders", TotalRevenue: 700}
	again := project.Project{
		Client:       "Private Owner",
		TotalRevenue: 300,
		ChangeOrders: []project.ChangeOrder{{Amount: 50, Approved: true}},
	}

	totals := stats.ByClient([]project.Project{sampleProject(), other, again})

	require.Equal(t, []stats.ClientTotal{
		{Client: "Ace Builders", BaseRevenue: 700, Count: 1},
		{Client: "Private Owner", BaseRevenue: 10300, ChangeOrders: 2050, Count: 2},
	}, totals)
	require.Equal(t, 12350.0, totals[1].TotalRevenue())
}

func TestByMonth(t *testing.T) {
	march := project.Project{TotalRevenue: 100, ProjectStartDate: time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)}
	may := project.Project{TotalRevenue: 50, ProjectStartDate: day(2024, 5, 1)}

	totals := stats.ByMonth([]project.Project{may, sampleProject(), march})

	require.Equal(t, []stats.MonthTotal{
		{Month: "2024-03", Count: 2, BaseRevenue: 10100, ChangeOrders: 2000, Expenses: 4000, Profit: 8100},
		{Month: "2024-05", Count: 1, BaseRevenue: 50, Profit: 50},
	}, totals)
}
