package core

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	PresetLast3Months DatePreset = "last3months"
	PresetLast6Months DatePreset = "last6months"
	PresetLastYear    DatePreset = "lastyear"
	PresetAll         DatePreset = "all"
)

type (
	DatePreset string

	// DateRange restricts invoices by issue date. Explicit StartDate/EndDate
	// take precedence over the preset when both are present.
	DateRange struct {
		StartDate *time.Time
		EndDate   *time.Time
		Preset    DatePreset
	}

	// AmountRange restricts invoices by amount, bounds inclusive.
	// Nil bounds mean unbounded.
	AmountRange struct {
		MinCents *int64
		MaxCents *int64
	}

	// FilterState is the single query descriptor driving every statistics
	// view. Empty sets impose no restriction. The state is replaced
	// wholesale, never patched field by field.
	FilterState struct {
		DateRange    DateRange
		Categories   []string
		InvoiceTypes []string
		Status       []string
		AmountRange  AmountRange
	}
)

func (p DatePreset) Valid() bool {
	switch p {
	case PresetLast3Months, PresetLast6Months, PresetLastYear, PresetAll:
		return true
	}
	return false
}

// DefaultFilters returns the fixed default state: last six months, no
// category/type/status restriction, unbounded amounts.
func DefaultFilters() FilterState {
	return FilterState{
		DateRange: DateRange{Preset: PresetLast6Months},
	}
}

// Bounds resolves the range to concrete lower/upper issue-date bounds
// relative to now. Explicit dates win over the preset; PresetAll and an
// unset preset impose no lower bound.
func (r DateRange) Bounds(now time.Time) (start, end *time.Time) {
	start = r.StartDate
	end = r.EndDate

	if start == nil {
		var from time.Time
		switch r.Preset {
		case PresetLast3Months:
			from = now.AddDate(0, -3, 0)
		case PresetLast6Months:
			from = now.AddDate(0, -6, 0)
		case PresetLastYear:
			from = now.AddDate(-1, 0, 0)
		default:
			return start, end
		}
		start = &from
	}
	return start, end
}

// Equal compares two filter states by value, ignoring set ordering.
func (f FilterState) Equal(other FilterState) bool {
	return f.Key() == other.Key()
}

// Key returns a canonical representation of the filter state, used for
// value comparison and as a cache key. Sets are sorted, dates rendered
// as dates only.
func (f FilterState) Key() string {
	var b strings.Builder
	b.WriteString("d=")
	if f.DateRange.StartDate != nil {
		b.WriteString(f.DateRange.StartDate.Format("2006-01-02"))
	}
	b.WriteByte(':')
	if f.DateRange.EndDate != nil {
		b.WriteString(f.DateRange.EndDate.Format("2006-01-02"))
	}
	b.WriteByte(':')
	b.WriteString(string(f.DateRange.Preset))

	writeSet := func(label string, values []string) {
		b.WriteByte(';')
		b.WriteString(label)
		b.WriteByte('=')
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		// Quote each element so values containing the separators cannot
		// collide with a different set.
		for i, v := range sorted {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
	}
	writeSet("c", f.Categories)
	writeSet("t", f.InvoiceTypes)
	writeSet("s", f.Status)

	b.WriteString(";a=")
	if f.AmountRange.MinCents != nil {
		b.WriteString(strconv.FormatInt(*f.AmountRange.MinCents, 10))
	}
	b.WriteByte(':')
	if f.AmountRange.MaxCents != nil {
		b.WriteString(strconv.FormatInt(*f.AmountRange.MaxCents, 10))
	}
	return b.String()
}

// IsDefault reports whether the state equals DefaultFilters().
func (f FilterState) IsDefault() bool {
	return f.Equal(DefaultFilters())
}
