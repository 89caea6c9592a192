package store

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/siteledger/internal/domain/project"
	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	case float64:
		// Epoch milliseconds
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return time.UnixMilli(int64(t)).UTC(), true
		}
	}
	return time.Time{}, false
}

// coerceTime parses a stored date, falling back to now.
func coerceTime(v any, now time.Time) time.Time {
	if parsed, ok := parseTime(v); ok {
		return parsed
	}
	return now
}

// coerceOptionalTime keeps an absent date absent.
func coerceOptionalTime(v any, now time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := coerceTime(v, now)
	return &t
}

// coerceAmount parses a stored amount, falling back to zero.
func coerceAmount(v any) float64 {
	switch a := v.(type) {
	case float64:
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return 0
		}
		return a
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(a))
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	}
	return 0
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func coerceBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func coerceCategory(v any) project.Category {
	c := project.Category(strings.ToLower(strings.TrimSpace(coerceString(v))))
	if c.Valid() {
		return c
	}
	return project.CategoryOther
}

// objects returns the object elements of a stored sequence. Anything that
// is not a sequence yields an empty one.
func objects(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
