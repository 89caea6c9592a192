package ledger

import (
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
)

// CreateProjectRequest defines project creation inputs. ID is optional and
// generated when empty.
type CreateProjectRequest struct {
	ID               string
	Name             string
	Address          string
	Client           string
	TotalRevenue     float64
	ProjectStartDate time.Time
	Notes            string
}

func (r CreateProjectRequest) validate() error {
	if err := project.ValidateName(r.Name); err != nil {
		return err
	}
	if err := project.ValidateStartDate(r.ProjectStartDate); err != nil {
		return err
	}
	return project.ValidateAmount(r.TotalRevenue)
}

// ProjectPatch lists project fields to change. Nil fields are left alone.
// IsCompleted routes through complete/reopen so CompletedAt stays in step.
type ProjectPatch struct {
	Name             *string
	Address          *string
	Client           *string
	TotalRevenue     *float64
	ProjectStartDate *time.Time
	Notes            *string
	IsCompleted      *bool
}

func (p ProjectPatch) validate() error {
	if p.Name != nil {
		if err := project.ValidateName(*p.Name); err != nil {
			return err
		}
	}
	if p.TotalRevenue != nil {
		if err := project.ValidateAmount(*p.TotalRevenue); err != nil {
			return err
		}
	}
	if p.ProjectStartDate != nil {
		return project.ValidateStartDate(*p.ProjectStartDate)
	}
	return nil
}

func (p ProjectPatch) apply(proj *project.Project, now time.Time) {
	if p.Name != nil {
		proj.Name = *p.Name
	}
	if p.Address != nil {
		proj.Address = *p.Address
	}
	if p.Client != nil {
		proj.Client = *p.Client
	}
	if p.TotalRevenue != nil {
		proj.TotalRevenue = *p.TotalRevenue
	}
	if p.ProjectStartDate != nil {
		proj.ProjectStartDate = p.ProjectStartDate.UTC()
	}
	if p.Notes != nil {
		proj.Notes = *p.Notes
	}
	if p.IsCompleted != nil {
		if *p.IsCompleted {
			proj.IsCompleted = true
			proj.CompletedAt = &now
		} else {
			proj.IsCompleted = false
			proj.CompletedAt = nil
		}
	}
}

// CreateExpenseRequest defines expense creation inputs. The expense date is
// the creation time.
type CreateExpenseRequest struct {
	ID          string
	Category    project.Category
	Subcategory string
	Amount      float64
	Description string
}

// ExpensePatch lists expense fields to change. The date is fixed at creation.
type ExpensePatch struct {
	Category    *project.Category
	Subcategory *string
	Amount      *float64
	Description *string
}

func (p ExpensePatch) validate() error {
	if p.Category != nil {
		if err := project.ValidateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		return project.ValidateAmount(*p.Amount)
	}
	return nil
}

func (p ExpensePatch) apply(e *project.Expense) {
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Subcategory != nil {
		e.Subcategory = *p.Subcategory
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
}

// CreateChangeOrderRequest defines change order creation inputs.
type CreateChangeOrderRequest struct {
	ID          string
	Description string
	Amount      float64
	Approved    bool
}

// ChangeOrderPatch lists change order fields to change. The date is fixed
// at creation.
type ChangeOrderPatch struct {
	Description *string
	Amount      *float64
	Approved    *bool
}

func (p ChangeOrderPatch) validate() error {
	if p.Description != nil {
		if err := project.ValidateChangeOrder(*p.Description, 0); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		return project.ValidateAmount(*p.Amount)
	}
	return nil
}

func (p ChangeOrderPatch) apply(c *project.ChangeOrder) {
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.Approved != nil {
		c.Approved = *p.Approved
	}
}
