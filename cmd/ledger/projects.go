package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/filter"
	"github.com/rpggio/siteledger/internal/report"
	"github.com/rpggio/siteledger/internal/stats"
)

// selection holds the filter flags shared by list and summary.
type selection struct {
	status string
	period string
	client string
}

func (s *selection) setFlags(f *flag.FlagSet) {
	f.StringVar(&s.status, "status", "all", "Project status (all, active, completed)")
	f.StringVar(&s.period, "period", "all", "Period (all, daily, weekly, monthly, quarterly)")
	f.StringVar(&s.client, "client", filter.AllClients, "Client name, or all")
}

func (s *selection) apply(projects []project.Project, now time.Time) ([]project.Project, filter.Criteria, error) {
	criteria, err := filter.ParseCriteria(s.status, s.period, s.client)
	if err != nil {
		return nil, filter.Criteria{}, err
	}
	return filter.Apply(projects, criteria, now), criteria, nil
}

type listCmd struct {
	*app
	sel selection
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list projects with their headline numbers" }
func (*listCmd) Usage() string {
	return `ledger list [-status <status>] [-period <period>] [-client <name>]

  Lists the selected projects, newest start date first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) { c.sel.setFlags(f) }

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	svc, closer, cfg, err := c.openLedger(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer closer.Close()

	projects, _, err := c.sel.apply(svc.Projects(), c.clock())
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Projects (%d)\n\n", len(projects))
	if len(projects) == 0 {
		b.WriteString("No projects match.\n")
		return c.print(b.String())
	}
	b.WriteString("| ID | Project | Client | Status | Started | Revenue | Profit |\n")
	b.WriteString("|---|---|---|---|---|---:|---:|\n")
	for _, p := range projects {
		s := stats.Calculate(p)
		status := "Active"
		if p.IsCompleted {
			status = "Completed"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			p.ID, p.Name, p.Client, status,
			p.ProjectStartDate.UTC().Format(time.DateOnly),
			report.Money(s.EffectiveRevenue(), cfg.Report.Currency),
			report.Money(s.Profit, cfg.Report.Currency))
	}
	return c.print(b.String())
}

func (c *listCmd) print(md string) subcommands.ExitStatus {
	if err := c.printMarkdown(md); err != nil {
		return c.fail(err)
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	*app
	sel selection
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display portfolio totals and breakdowns" }
func (*summaryCmd) Usage() string {
	return `ledger summary [-status <status>] [-period <period>] [-client <name>]

  Displays revenue, expenses and profit for the selected projects, with
  breakdowns by category, client and month.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.sel.setFlags(f) }

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	svc, closer, cfg, err := c.openLedger(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer closer.Close()

	projects, criteria, err := c.sel.apply(svc.Projects(), c.clock())
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	client := criteria.Client
	if client == "" {
		client = filter.AllClients
	}
	title := fmt.Sprintf("Summary: %s projects, %s period, %s clients", criteria.Status, criteria.Period, client)

	var b strings.Builder
	if err := report.Overview(&b, title, projects, report.Options{Currency: cfg.Report.Currency}); err != nil {
		return c.fail(err)
	}
	if err := c.printMarkdown(b.String()); err != nil {
		return c.fail(err)
	}
	return subcommands.ExitSuccess
}

type reportCmd struct {
	*app
	currency string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display the financial report of one project" }
func (*reportCmd) Usage() string {
	return `ledger report [-currency <code>] <project-id>

  Displays a project's details, stats, expenses and change orders.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code (defaults to report.currency from config)")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintf(c.out, "Error: expected one project id\n")
		return subcommands.ExitUsageError
	}
	svc, closer, cfg, err := c.openLedger(ctx)
	if err != nil {
		return c.fail(err)
	}
	defer closer.Close()

	p, err := svc.Project(f.Arg(0))
	if errors.Is(err, project.ErrProjectNotFound) {
		fmt.Fprintf(c.out, "Error: no project %q\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	if err != nil {
		return c.fail(err)
	}

	currency := c.currency
	if currency == "" {
		currency = cfg.Report.Currency
	}
	var b strings.Builder
	if err := report.Markdown(&b, *p, stats.Calculate(*p), report.Options{Currency: currency}); err != nil {
		return c.fail(err)
	}
	if err := c.printMarkdown(b.String()); err != nil {
		return c.fail(err)
	}
	return subcommands.ExitSuccess
}
