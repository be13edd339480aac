// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for reminder dueness checking.
// Each cadence (once, daily, weekly, monthly) has its own strategy that
// encapsulates the logic for determining if a reminder should go out.

package services

import (
	"fmt"
	"time"

	"fatture/internal/core"
)

// DuenessChecker is the strategy interface for checking if a reminder is due.
// Each implementation encapsulates the algorithm for a specific cadence.
type DuenessChecker interface {
	// IsDue returns true if a reminder should be sent given when one was
	// last sent for this invoice and configuration pair. lastSent is the
	// zero time when no reminder was ever sent.
	IsDue(lastSent, now time.Time, dueDate time.Time) bool
}

// OnceChecker sends a single reminder and never repeats it.
type OnceChecker struct{}

func (OnceChecker) IsDue(lastSent, _ time.Time, _ time.Time) bool {
	return lastSent.IsZero()
}

// DailyChecker sends at most one reminder per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastSent, now time.Time, _ time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return lastSent.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker sends again once 7 or more days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastSent, now time.Time, _ time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	daysSince := now.Sub(lastSent).Hours() / 24
	return daysSince >= 7
}

// MonthlyChecker sends once per month, on or after the invoice's due day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastSent, now time.Time, dueDate time.Time) bool {
	if lastSent.IsZero() {
		return true
	}

	// Already sent this month?
	if lastSent.Year() == now.Year() && lastSent.Month() == now.Month() {
		return false
	}

	// Clamp the target day for short months
	targetDay := dueDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}

	return now.Day() >= targetDay
}

// duenessStrategies maps cadences to their corresponding checkers.
var duenessStrategies = map[core.ReminderCadence]DuenessChecker{
	core.CadenceOnce:    OnceChecker{},
	core.CadenceDaily:   DailyChecker{},
	core.CadenceWeekly:  WeeklyChecker{},
	core.CadenceMonthly: MonthlyChecker{},
}

// GetDuenessChecker returns the appropriate dueness checker for a cadence.
// Returns an error if the cadence is not supported.
func GetDuenessChecker(cadence core.ReminderCadence) (DuenessChecker, error) {
	checker, ok := duenessStrategies[cadence]
	if !ok {
		return nil, fmt.Errorf("unknown reminder cadence: %s", cadence)
	}
	return checker, nil
}

// RegisterDuenessChecker allows registering custom dueness checkers for
// new cadences without modifying this package.
func RegisterDuenessChecker(cadence core.ReminderCadence, checker DuenessChecker) {
	duenessStrategies[cadence] = checker
}
