package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/ledger"
	"github.com/rpggio/siteledger/internal/mcp"
)

// ErrIncompleteChange is returned for a change missing the record its
// operation needs.
var ErrIncompleteChange = errors.New("incomplete change")

// Push replays a saved change on the mirror. A create the mirror already
// has is sent again as an update, so replays are idempotent.
func (c *Client) Push(ctx context.Context, change ledger.Change) error {
	switch change.Op {
	case ledger.OpProjectCreate:
		if change.Project == nil {
			return fmt.Errorf("%w: %s without project", ErrIncompleteChange, change.Op)
		}
		err := c.Call(ctx, string(change.Op), createProjectParams(*change.Project), nil)
		if isDuplicate(err) {
			return c.Call(ctx, string(ledger.OpProjectUpdate), updateProjectParams(*change.Project), nil)
		}
		return err
	case ledger.OpProjectUpdate:
		if change.Project == nil {
			return fmt.Errorf("%w: %s without project", ErrIncompleteChange, change.Op)
		}
		return c.Call(ctx, string(change.Op), updateProjectParams(*change.Project), nil)
	case ledger.OpProjectDelete:
		return c.Call(ctx, string(change.Op), mcp.IDParams{ID: change.ProjectID}, nil)

	case ledger.OpExpenseCreate:
		if change.Expense == nil {
			return fmt.Errorf("%w: %s without expense", ErrIncompleteChange, change.Op)
		}
		err := c.Call(ctx, string(change.Op), createExpenseParams(change.ProjectID, *change.Expense), nil)
		if isDuplicate(err) {
			return c.Call(ctx, string(ledger.OpExpenseUpdate), updateExpenseParams(change.ProjectID, *change.Expense), nil)
		}
		return err
	case ledger.OpExpenseUpdate:
		if change.Expense == nil {
			return fmt.Errorf("%w: %s without expense", ErrIncompleteChange, change.Op)
		}
		return c.Call(ctx, string(change.Op), updateExpenseParams(change.ProjectID, *change.Expense), nil)
	case ledger.OpExpenseDelete:
		return c.Call(ctx, string(change.Op), mcp.ItemParams{ProjectID: change.ProjectID, ID: change.ItemID}, nil)

	case ledger.OpChangeOrderCreate:
		if change.ChangeOrder == nil {
			return fmt.Errorf("%w: %s without change order", ErrIncompleteChange, change.Op)
		}
		err := c.Call(ctx, string(change.Op), createChangeOrderParams(change.ProjectID, *change.ChangeOrder), nil)
		if isDuplicate(err) {
			return c.Call(ctx, string(ledger.OpChangeOrderUpdate), updateChangeOrderParams(change.ProjectID, *change.ChangeOrder), nil)
		}
		return err
	case ledger.OpChangeOrderUpdate:
		if change.ChangeOrder == nil {
			return fmt.Errorf("%w: %s without change order", ErrIncompleteChange, change.Op)
		}
		return c.Call(ctx, string(change.Op), updateChangeOrderParams(change.ProjectID, *change.ChangeOrder), nil)
	case ledger.OpChangeOrderDelete:
		return c.Call(ctx, string(change.Op), mcp.ItemParams{ProjectID: change.ProjectID, ID: change.ItemID}, nil)

	default:
		return fmt.Errorf("%w: unknown op %q", ErrIncompleteChange, change.Op)
	}
}

func isDuplicate(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.APICode() == mcp.CodeDuplicateID
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func createProjectParams(p project.Project) mcp.CreateProjectParams {
	return mcp.CreateProjectParams{
		ID:               p.ID,
		Name:             p.Name,
		Address:          p.Address,
		Client:           p.Client,
		TotalRevenue:     p.TotalRevenue,
		ProjectStartDate: formatDate(p.ProjectStartDate),
		Notes:            p.Notes,
	}
}

func updateProjectParams(p project.Project) mcp.UpdateProjectParams {
	start := formatDate(p.ProjectStartDate)
	return mcp.UpdateProjectParams{
		ID:               p.ID,
		Name:             &p.Name,
		Address:          &p.Address,
		Client:           &p.Client,
		TotalRevenue:     &p.TotalRevenue,
		ProjectStartDate: &start,
		Notes:            &p.Notes,
		IsCompleted:      &p.IsCompleted,
	}
}

func createExpenseParams(projectID string, e project.Expense) mcp.CreateExpenseParams {
	return mcp.CreateExpenseParams{
		ProjectID:   projectID,
		ID:          e.ID,
		Category:    string(e.Category),
		Subcategory: e.Subcategory,
		Amount:      e.Amount,
		Description: e.Description,
	}
}

func updateExpenseParams(projectID string, e project.Expense) mcp.UpdateExpenseParams {
	category := string(e.Category)
	return mcp.UpdateExpenseParams{
		ProjectID:   projectID,
		ID:          e.ID,
		Category:    &category,
		Subcategory: &e.Subcategory,
		Amount:      &e.Amount,
		Description: &e.Description,
	}
}

func createChangeOrderParams(projectID string, co project.ChangeOrder) mcp.CreateChangeOrderParams {
	return mcp.CreateChangeOrderParams{
		ProjectID:   projectID,
		ID:          co.ID,
		Description: co.Description,
		Amount:      co.Amount,
		Approved:    co.Approved,
	}
}

func updateChangeOrderParams(projectID string, co project.ChangeOrder) mcp.UpdateChangeOrderParams {
	return mcp.UpdateChangeOrderParams{
		ProjectID:   projectID,
		ID:          co.ID,
		Description: &co.Description,
		Amount:      &co.Amount,
		Approved:    &co.Approved,
	}
}
