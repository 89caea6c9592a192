package ledger

import "github.com/rpggio/siteledger/internal/domain/project"

// Op names a persisted ledger mutation using the remote mirror's method names.
type Op string

const (
	OpProjectCreate     Op = "projects.create"
	OpProjectUpdate     Op = "projects.update"
	OpProjectDelete     Op = "projects.delete"
	OpExpenseCreate     Op = "expenses.create"
	OpExpenseUpdate     Op = "expenses.update"
	OpExpenseDelete     Op = "expenses.delete"
	OpChangeOrderCreate Op = "changeOrders.create"
	OpChangeOrderUpdate Op = "changeOrders.update"
	OpChangeOrderDelete Op = "changeOrders.delete"
)

// Change describes a mutation that was saved. Project holds the project as
// saved, except for project deletes. Expense and ChangeOrder are set for
// their create and update operations; ItemID names the nested record for
// every nested operation.
type Change struct {
	Op          Op
	ProjectID   string
	ItemID      string
	Project     *project.Project
	Expense     *project.Expense
	ChangeOrder *project.ChangeOrder
}

// Syncer receives saved changes. Publish must not block.
type Syncer interface {
	Publish(change Change)
}
