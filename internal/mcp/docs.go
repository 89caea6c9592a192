package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/report"
	"github.com/rpggio/siteledger/internal/stats"
)

const serverInstructions = `siteledger tracks construction projects, their expenses and change orders.

- Project: contract with one client. totalRevenue is the base contract value.
- Expense: categorized cost (materials, contractors, labor, landscaping, other). Its date is set on creation and never changes.
- Change order: amendment to the contract. Only approved change orders count toward revenue and profit.

Workflow:
1) Read: projects_getAll, or projects_filter with status/period/client.
2) Write: projects_create, expenses_create, changeOrders_create and their update/delete tools.
   Updating or deleting an unknown id does nothing and returns null / deleted=false.
3) Analyze: projects_stats for one project, analytics_summary for a selection.

Docs:
- siteledger://docs/metrics (how numbers are computed)
- siteledger://docs/catalog (categories, suggested subcategories and clients)
- siteledger://projects/{id}/report (markdown report for one project)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "siteledger://docs/metrics",
		Name:        "docs_metrics",
		Title:       "siteledger metrics",
		Description: "Definitions of revenue, profit, margin and the period filters.",
		Content: `# Metrics

## Per project (projects_stats)

- totalRevenue: base contract value, without change orders.
- totalChangeOrders: sum of approved change orders.
- totalExpenses: sum of all expenses.
- profit: totalRevenue + totalChangeOrders - totalExpenses.
- profitMargin: profit / (totalRevenue + totalChangeOrders) * 100, or 0 without revenue.
- laborPercentage: labor expenses / (totalRevenue + totalChangeOrders) * 100, or 0 without revenue.

## Selections (analytics_summary)

- baseRevenue excludes change orders; totalRevenueIncludingChangeOrders adds approved ones.
- averagePerProject: totalRevenueIncludingChangeOrders / count.
- overallMargin: totalProfit / totalRevenueIncludingChangeOrders * 100.

## Filters

Status, then client, then period. daily keeps only projects starting today.
weekly (from Sunday), monthly and quarterly keep projects started in the period
plus every project that is not completed. Results are sorted by start date, newest first.
`,
	},
	{
		URI:         "siteledger://docs/catalog",
		Name:        "docs_catalog",
		Title:       "siteledger catalog",
		Description: "Expense categories with suggested subcategories, and suggested clients.",
		Content:     catalogDoc(),
	},
}

// catalogDoc lists the suggestion tables. Subcategory and client text is
// free; only the category must be one of the listed values.
func catalogDoc() string {
	var b strings.Builder
	b.WriteString("# Expense categories\n")
	for _, c := range project.Categories {
		fmt.Fprintf(&b, "\n## %s\n\n", c)
		for _, sub := range project.Subcategories(c) {
			fmt.Fprintf(&b, "- %s\n", sub)
		}
	}
	b.WriteString("\n# Clients\n\n")
	for _, c := range project.Clients {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	return b.String()
}

const reportTemplateURI = "siteledger://projects/{id}/report"

func registerDocResources(server *sdkmcp.Server, svc LedgerService, currency string) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}

	server.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: reportTemplateURI,
		Name:        "project_report",
		Title:       "Project report",
		Description: "Markdown report with the stats, expenses and change orders of one project.",
		MIMEType:    "text/markdown",
	}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		uri := req.Params.URI
		id, ok := reportProjectID(uri)
		if !ok {
			return nil, sdkmcp.ResourceNotFoundError(uri)
		}
		proj, err := svc.Project(id)
		if err != nil {
			return nil, sdkmcp.ResourceNotFoundError(uri)
		}
		var b strings.Builder
		if err := report.Markdown(&b, *proj, stats.Calculate(*proj), report.Options{Currency: currency}); err != nil {
			return nil, err
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     b.String(),
			}},
		}, nil
	})
}

// reportProjectID extracts {id} from a report URI.
func reportProjectID(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "siteledger://projects/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/report")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
