package filter

import (
	"fmt"
	"strings"
)

// Status selects projects by completion.
type Status int

const (
	AllStatuses Status = iota
	Active
	Completed
)

func (s Status) String() string {
	switch s {
	case AllStatuses:
		return "all"
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		panic(fmt.Sprintf("unknown status %d", s))
	}
}

// ParseStatus accepts all, active or completed. The empty string means all.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllStatuses, nil
	case "active", "open":
		return Active, nil
	case "completed", "complete", "done":
		return Completed, nil
	default:
		return AllStatuses, fmt.Errorf("unknown status %q", s)
	}
}

// Period is a time window ending now.
type Period int

const (
	AnyPeriod Period = iota
	Daily
	Weekly
	Monthly
	Quarterly
)

func (p Period) String() string {
	switch p {
	case AnyPeriod:
		return "all"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// ParsePeriod accepts daily, weekly, monthly or quarterly and their singular
// nouns. The empty string and "all" mean no period filter.
func ParsePeriod(p string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", "all":
		return AnyPeriod, nil
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	default:
		return AnyPeriod, fmt.Errorf("unknown period %q", p)
	}
}

// AllClients is the client selection that keeps every client.
const AllClients = "all"

// Criteria are the three independent selections applied by Apply.
type Criteria struct {
	Status Status
	Period Period
	// Client must equal a project's client exactly. Empty or AllClients
	// keeps every client.
	Client string
}

// ParseCriteria builds Criteria from string inputs.
func ParseCriteria(status, period, client string) (Criteria, error) {
	s, err := ParseStatus(status)
	if err != nil {
		return Criteria{}, err
	}
	p, err := ParsePeriod(period)
	if err != nil {
		return Criteria{}, err
	}
	return Criteria{Status: s, Period: p, Client: client}, nil
}
