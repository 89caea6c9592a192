// Package filter selects and orders projects for display by status, client
// and time period.
package filter

import (
	"slices"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
)

// PeriodStart returns the first instant of the period containing now, in
// now's location. Weeks start on Sunday and quarters on January, April, July
// and October. AnyPeriod returns the zero time.
func PeriodStart(p Period, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Weekly:
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case Quarterly:
		first := m - (m-1)%3
		return time.Date(y, first, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}
	}
}

// Apply returns the projects matching c, most recently started first. It
// filters by status, then client, then period. The daily period keeps only
// projects starting today; the other periods also keep every project that
// is not completed. Projects with equal start dates keep their input order.
// The input slice is not modified.
func Apply(projects []project.Project, c Criteria, now time.Time) []project.Project {
	out := make([]project.Project, 0, len(projects))
	for _, p := range projects {
		if matchStatus(p, c.Status) && matchClient(p, c.Client) && matchPeriod(p, c.Period, now) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b project.Project) int {
		return b.ProjectStartDate.Compare(a.ProjectStartDate)
	})
	return out
}

func matchStatus(p project.Project, s Status) bool {
	switch s {
	case Active:
		return !p.IsCompleted
	case Completed:
		return p.IsCompleted
	default:
		return true
	}
}

func matchClient(p project.Project, client string) bool {
	return client == "" || client == AllClients || p.Client == client
}

func matchPeriod(p project.Project, period Period, now time.Time) bool {
	if period == AnyPeriod {
		return true
	}
	start := PeriodStart(period, now)
	if period == Daily {
		y, m, d := p.ProjectStartDate.In(now.Location()).Date()
		ty, tm, td := start.Date()
		return y == ty && m == tm && d == td
	}
	return !p.IsCompleted || !p.ProjectStartDate.Before(start)
}
