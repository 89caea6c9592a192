package project

import "time"

// Category classifies an expense.
type Category string

const (
	CategoryMaterials   Category = "materials"
	CategoryContractors Category = "contractors"
	CategoryLabor       Category = "labor"
	CategoryLandscaping Category = "landscaping"
	CategoryOther       Category = "other"
)

// Categories lists every expense category in display order.
var Categories = []Category{
	CategoryMaterials,
	CategoryContractors,
	CategoryLabor,
	CategoryLandscaping,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMaterials, CategoryContractors, CategoryLabor, CategoryLandscaping, CategoryOther:
		return true
	}
	return false
}

// Project is a unit of contracted work for one client.
type Project struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Address          string        `json:"address,omitempty"`
	Client           string        `json:"client"`
	TotalRevenue     float64       `json:"totalRevenue"`
	ProjectStartDate time.Time     `json:"projectStartDate"`
	CreatedAt        time.Time     `json:"createdAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	IsCompleted      bool          `json:"isCompleted"`
	Notes            string        `json:"notes,omitempty"`
	Expenses         []Expense     `json:"expenses"`
	ChangeOrders     []ChangeOrder `json:"changeOrders"`
}

// Expense is a categorized cost recorded against a project.
type Expense struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Subcategory string    `json:"subcategory"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// ChangeOrder amends a project's contract value. Only approved change
// orders count toward revenue.
type ChangeOrder struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Approved    bool      `json:"approved"`
}

// Clone returns a deep copy of p. Nested sequences are never shared with
// the original, so the copy can be mutated freely.
func (p Project) Clone() Project {
	out := p
	if p.CompletedAt != nil {
		completed := *p.CompletedAt
		out.CompletedAt = &completed
	}
	out.Expenses = append([]Expense(nil), p.Expenses...)
	out.ChangeOrders = append([]ChangeOrder(nil), p.ChangeOrders...)
	if out.Expenses == nil {
		out.Expenses = []Expense{}
	}
	if out.ChangeOrders == nil {
		out.ChangeOrders = []ChangeOrder{}
	}
	return out
}

// FindExpense returns the index of the expense with the given id, or -1.
func (p Project) FindExpense(id string) int {
	for i := range p.Expenses {
		if p.Expenses[i].ID == id {
			return i
		}
	}
	return -1
}

// FindChangeOrder returns the index of the change order with the given id, or -1.
func (p Project) FindChangeOrder(id string) int {
	for i := range p.ChangeOrders {
		if p.ChangeOrders[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the index of the project with the given id, or -1.
func Find(projects []Project, id string) int {
	for i := range projects {
		if projects[i].ID == id {
			return i
		}
	}
	return -1
}
