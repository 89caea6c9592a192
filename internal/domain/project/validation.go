package project

import (
	"math"
	"strings"
	"time"
)

// ValidateName checks the project display label.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "is required")
	}
	return nil
}

// ValidateAmount checks a money amount entered by a user. Amounts must be
// finite and non-negative.
func ValidateAmount(amount float64) error {
	switch {
	case math.IsNaN(amount) || math.IsInf(amount, 0):
		return invalid("amount", "must be a finite number")
	case amount < 0:
		return invalid("amount", "must not be negative")
	}
	return nil
}

// ValidateExpense validates the user-editable fields of an expense.
func ValidateExpense(category Category, amount float64) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	return ValidateAmount(amount)
}

// ValidateCategory rejects categories outside the fixed set.
func ValidateCategory(category Category) error {
	if !category.Valid() {
		return invalid("category", "must be one of materials, contractors, labor, landscaping, other")
	}
	return nil
}

// ValidateChangeOrder validates the user-editable fields of a change order.
func ValidateChangeOrder(description string, amount float64) error {
	if strings.TrimSpace(description) == "" {
		return invalid("description", "is required")
	}
	return ValidateAmount(amount)
}

// ValidateStartDate rejects the zero time.
func ValidateStartDate(start time.Time) error {
	if start.IsZero() {
		return invalid("projectStartDate", "is required")
	}
	return nil
}
