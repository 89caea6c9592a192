// Package report renders a project and its stats as a markdown document.
package report

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/stats"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

// DefaultCurrency is used when Options.Currency is empty.
const DefaultCurrency = money.USD

// ErrUnknownCurrency is returned for currency codes go-money does not know.
var ErrUnknownCurrency = errors.New("unknown currency")

// Options configure rendering.
type Options struct {
	// Currency is an ISO 4217 code.
	Currency string
}

type document struct {
	Project    project.Project
	Stats      stats.ProjectStats
	Categories []stats.CategoryTotal
}

type overviewRow struct {
	Project project.Project
	Stats   stats.ProjectStats
}

type overview struct {
	Title      string
	Summary    stats.Summary
	Projects   []overviewRow
	Categories []stats.CategoryTotal
	Clients    []stats.ClientTotal
	Months     []stats.MonthTotal
}

// Markdown writes the report for p to w. s is expected to be
// stats.Calculate(p); the report does not recompute it.
func Markdown(w io.Writer, p project.Project, s stats.ProjectStats, opts Options) error {
	doc := document{Project: p, Stats: s}
	for _, c := range stats.ByCategory([]project.Project{p}) {
		if c.Count > 0 {
			doc.Categories = append(doc.Categories, c)
		}
	}
	return render(w, "project.md", doc, opts)
}

// Overview writes a portfolio report for a selection of projects: totals,
// one row per project in the given order, and the category, client and
// month breakdowns.
func Overview(w io.Writer, title string, projects []project.Project, opts Options) error {
	doc := overview{
		Title:   title,
		Summary: stats.Summarize(projects),
		Clients: stats.ByClient(projects),
		Months:  stats.ByMonth(projects),
	}
	for _, p := range projects {
		doc.Projects = append(doc.Projects, overviewRow{Project: p, Stats: stats.Calculate(p)})
	}
	for _, c := range stats.ByCategory(projects) {
		if c.Count > 0 {
			doc.Categories = append(doc.Categories, c)
		}
	}
	return render(w, "overview.md", doc, opts)
}

func render(w io.Writer, name string, data any, opts Options) error {
	code := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if code == "" {
		code = DefaultCurrency
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, opts.Currency)
	}

	tmpl, err := template.New(name).Funcs(funcs(code)).ParseFS(templates, "templates/"+name)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return nil
}

func funcs(currency string) template.FuncMap {
	return template.FuncMap{
		"money":   func(v float64) string { return Money(v, currency) },
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"date":    func(t time.Time) string { return t.UTC().Format(time.DateOnly) },
		"cell":    cell,
	}
}

// Money formats amount in currency, rounded to the currency's minor unit.
func Money(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// cell keeps free text from breaking a table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
