package mcp

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/siteledger/internal/ledger"
)

// toolName maps a method name to a tool name: projects.getAll becomes
// projects_getAll.
func toolName(method string) string {
	return strings.ReplaceAll(method, ".", "_")
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	readOnly := &sdkmcp.ToolAnnotations{ReadOnlyHint: true}
	destructive := true
	deletes := &sdkmcp.ToolAnnotations{DestructiveHint: &destructive, IdempotentHint: true}
	updates := &sdkmcp.ToolAnnotations{IdempotentHint: true}

	addTool(server, MethodGetAll, "List every project with its expenses and change orders, in insertion order", h.GetAll, readOnly)
	addTool(server, string(ledger.OpProjectCreate), "Create a project with no expenses or change orders", h.CreateProject, nil)
	addTool(server, string(ledger.OpProjectUpdate), "Change project fields; isCompleted=true completes it now, false reopens it", h.UpdateProject, updates)
	addTool(server, string(ledger.OpProjectDelete), "Delete a project with its expenses and change orders", h.DeleteProject, deletes)

	addTool(server, string(ledger.OpExpenseCreate), "Add an expense dated now to a project", h.CreateExpense, nil)
	addTool(server, string(ledger.OpExpenseUpdate), "Change category, subcategory, amount or description of an expense", h.UpdateExpense, updates)
	addTool(server, string(ledger.OpExpenseDelete), "Delete an expense", h.DeleteExpense, deletes)

	addTool(server, string(ledger.OpChangeOrderCreate), "Add a change order dated now to a project", h.CreateChangeOrder, nil)
	addTool(server, string(ledger.OpChangeOrderUpdate), "Change description, amount or approval of a change order", h.UpdateChangeOrder, updates)
	addTool(server, string(ledger.OpChangeOrderDelete), "Delete a change order", h.DeleteChangeOrder, deletes)

	addTool(server, MethodStats, "Revenue, change orders, expenses, profit, margin and labor share of one project", h.ProjectStats, readOnly)
	addTool(server, MethodFilter, "Projects matching status, period and client, newest start date first", h.Filter, readOnly)
	addTool(server, MethodSummary, "Totals by category, client and month for the projects matching status, period and client", h.Summary, readOnly)
}

// Results carry dates as strings, which inferred schemas would describe as
// objects.
var objectSchema = &jsonschema.Schema{Type: "object"}

func addTool[In, Out any](server *sdkmcp.Server, method, description string, call func(context.Context, In) (Out, error), annotations *sdkmcp.ToolAnnotations) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:         toolName(method),
		Description:  description,
		Annotations:  annotations,
		OutputSchema: objectSchema,
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
		out, err := call(ctx, in)
		if err != nil {
			var zero Out
			return nil, zero, mapError(err)
		}
		return nil, out, nil
	})
}
