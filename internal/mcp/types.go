package mcp

import (
	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/rpggio/siteledger/internal/stats"
)

// Dates are accepted as RFC 3339 timestamps or YYYY-MM-DD.

type CreateProjectParams struct {
	ID               string  `json:"id,omitempty" jsonschema:"project id, generated when omitted"`
	Name             string  `json:"name" validate:"required" jsonschema:"project name"`
	Address          string  `json:"address,omitempty"`
	Client           string  `json:"client"`
	TotalRevenue     float64 `json:"totalRevenue" validate:"gte=0" jsonschema:"contract value"`
	ProjectStartDate string  `json:"projectStartDate" validate:"required" jsonschema:"start date, RFC 3339 or YYYY-MM-DD"`
	Notes            string  `json:"notes,omitempty"`
}

type UpdateProjectParams struct {
	ID               string   `json:"id" validate:"required"`
	Name             *string  `json:"name,omitempty" validate:"omitnil,min=1"`
	Address          *string  `json:"address,omitempty"`
	Client           *string  `json:"client,omitempty"`
	TotalRevenue     *float64 `json:"totalRevenue,omitempty" validate:"omitnil,gte=0"`
	ProjectStartDate *string  `json:"projectStartDate,omitempty"`
	Notes            *string  `json:"notes,omitempty"`
	IsCompleted      *bool    `json:"isCompleted,omitempty" jsonschema:"true completes the project now, false reopens it"`
}

type IDParams struct {
	ID string `json:"id" validate:"required"`
}

type CreateExpenseParams struct {
	ProjectID   string  `json:"projectId" validate:"required"`
	ID          string  `json:"id,omitempty"`
	Category    string  `json:"category" validate:"required,oneof=materials contractors labor landscaping other" jsonschema:"materials, contractors, labor, landscaping or other"`
	Subcategory string  `json:"subcategory,omitempty"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
}

type UpdateExpenseParams struct {
	ProjectID   string   `json:"projectId" validate:"required"`
	ID          string   `json:"id" validate:"required"`
	Category    *string  `json:"category,omitempty" validate:"omitnil,oneof=materials contractors labor landscaping other"`
	Subcategory *string  `json:"subcategory,omitempty"`
	Amount      *float64 `json:"amount,omitempty" validate:"omitnil,gte=0"`
	Description *string  `json:"description,omitempty"`
}

type ItemParams struct {
	ProjectID string `json:"projectId" validate:"required"`
	ID        string `json:"id" validate:"required"`
}

type CreateChangeOrderParams struct {
	ProjectID   string  `json:"projectId" validate:"required"`
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Approved    bool    `json:"approved,omitempty"`
}

type UpdateChangeOrderParams struct {
	ProjectID   string   `json:"projectId" validate:"required"`
	ID          string   `json:"id" validate:"required"`
	Description *string  `json:"description,omitempty" validate:"omitnil,min=1"`
	Amount      *float64 `json:"amount,omitempty" validate:"omitnil,gte=0"`
	Approved    *bool    `json:"approved,omitempty"`
}

type FilterParams struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=all active completed" jsonschema:"all, active or completed"`
	Period string `json:"period,omitempty" validate:"omitempty,oneof=all daily weekly monthly quarterly" jsonschema:"daily, weekly, monthly or quarterly; omit for no period"`
	Client string `json:"client,omitempty" jsonschema:"exact client name; omit or all for every client"`
}

type EmptyParams struct{}

type ProjectsResponse struct {
	Projects []project.Project `json:"projects"`
}

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type ProjectStatsResponse struct {
	ProjectID string             `json:"projectId"`
	Stats     stats.ProjectStats `json:"stats"`
}

type AnalyticsResponse struct {
	Summary    stats.Summary         `json:"summary"`
	Categories []stats.CategoryTotal `json:"categories"`
	Clients    []stats.ClientTotal   `json:"clients"`
	Months     []stats.MonthTotal    `json:"months"`
}

type ProjectResponse struct {
	Project *project.Project `json:"project"`
}

type ExpenseResponse struct {
	Expense *project.Expense `json:"expense"`
}

type ChangeOrderResponse struct {
	ChangeOrder *project.ChangeOrder `json:"changeOrder"`
}
