package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rpggio/siteledger/internal/domain/project"
)

// Entry is the outcome of validating one stored record.
type Entry struct {
	Index   int             `json:"index"`
	Project project.Project `json:"project"`
	Dropped bool            `json:"dropped"`
	Reason  string          `json:"reason,omitempty"`
}

// Report is the result of decoding a stored collection.
type Report struct {
	// Corrupt is set when the slot is not a JSON array at all.
	Corrupt bool    `json:"corrupt"`
	Reason  string  `json:"reason,omitempty"`
	Entries []Entry `json:"entries"`
}

// Projects returns the records that passed validation, in stored order.
func (r Report) Projects() []project.Project {
	out := make([]project.Project, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.Dropped {
			out = append(out, e.Project)
		}
	}
	return out
}

// Dropped returns the records that failed validation.
func (r Report) Dropped() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Dropped {
			out = append(out, e)
		}
	}
	return out
}

type recordKey struct {
	ID   string `validate:"required"`
	Name string `validate:"required"`
}

type childKey struct {
	ID string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode validates stored data entry by entry. Missing dates become now,
// unreadable amounts become zero, and entries without an id or name, or
// repeating an earlier id, are dropped with a reason.
func Decode(data []byte, now time.Time) Report {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Report{Corrupt: true, Reason: corruptReason(err)}
	}
	if raw == nil {
		// "null" parses as an empty slice but is not a sequence.
		return Report{Corrupt: true, Reason: "stored value is not an array"}
	}

	report := Report{Entries: make([]Entry, 0, len(raw))}
	seen := make(map[string]int, len(raw))
	for i, item := range raw {
		entry := decodeEntry(i, item, now)
		if !entry.Dropped {
			if first, ok := seen[entry.Project.ID]; ok {
				entry = Entry{Index: i, Dropped: true, Reason: fmt.Sprintf("duplicate id %q, first at entry %d", entry.Project.ID, first)}
			} else {
				seen[entry.Project.ID] = i
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

func corruptReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return "stored value is not an array"
	}
	return fmt.Sprintf("invalid JSON: %v", err)
}

func decodeEntry(index int, item json.RawMessage, now time.Time) Entry {
	var obj map[string]any
	if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
		return Entry{Index: index, Dropped: true, Reason: "entry is not an object"}
	}

	id := coerceString(obj["id"])
	key := recordKey{
		ID:   strings.TrimSpace(id),
		Name: strings.TrimSpace(coerceString(obj["name"])),
	}
	if err := validate.Struct(key); err != nil {
		return Entry{Index: index, Dropped: true, Reason: validationReason(err)}
	}

	p := project.Project{
		ID:               id,
		Name:             coerceString(obj["name"]),
		Address:          coerceString(obj["address"]),
		Client:           coerceString(obj["client"]),
		TotalRevenue:     coerceAmount(obj["totalRevenue"]),
		ProjectStartDate: coerceTime(obj["projectStartDate"], now),
		CreatedAt:        coerceTime(obj["createdAt"], now),
		CompletedAt:      coerceOptionalTime(obj["completedAt"], now),
		IsCompleted:      coerceBool(obj["isCompleted"]),
		Notes:            coerceString(obj["notes"]),
		Expenses:         []project.Expense{},
		ChangeOrders:     []project.ChangeOrder{},
	}
	// CompletedAt is set exactly when the project is completed.
	switch {
	case !p.IsCompleted:
		p.CompletedAt = nil
	case p.CompletedAt == nil:
		completed := now
		p.CompletedAt = &completed
	}

	for _, e := range objects(obj["expenses"]) {
		id := coerceString(e["id"])
		if validate.Struct(childKey{ID: id}) != nil {
			continue
		}
		p.Expenses = append(p.Expenses, project.Expense{
			ID:          id,
			Category:    coerceCategory(e["category"]),
			Subcategory: coerceString(e["subcategory"]),
			Amount:      coerceAmount(e["amount"]),
			Description: coerceString(e["description"]),
			Date:        coerceTime(e["date"], now),
		})
	}

	for _, c := range objects(obj["changeOrders"]) {
		id := coerceString(c["id"])
		if validate.Struct(childKey{ID: id}) != nil {
			continue
		}
		p.ChangeOrders = append(p.ChangeOrders, project.ChangeOrder{
			ID:          id,
			Description: coerceString(c["description"]),
			Amount:      coerceAmount(c["amount"]),
			Date:        coerceTime(c["date"], now),
			Approved:    coerceBool(c["approved"]),
		})
	}

	return Entry{Index: index, Project: p}
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
