package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a recurring template should produce a new
// transaction. Each interval has its own strategy.
type DuenessChecker interface {
	// IsDue reports whether a copy is owed at now, given the last run and the date of
	// the template, whose day and month anchor monthly and yearly schedules.
	IsDue(lastRun, now, anchor time.Time) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastRun, now, _ time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	ly, lm, ld := lastRun.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// WeeklyChecker is due once seven days have passed since the last run.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastRun, now, _ time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= 7*24*time.Hour
}

// MonthlyChecker is due in a new month once the anchor day is reached. Anchors past
// the end of a short month fall on its last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastRun, now, anchor time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(anchor.Day(), now.Year(), now.Month())
}

// YearlyChecker is due in a new year once the anchor month and day are reached.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastRun, now, anchor time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < anchor.Month():
		return false
	case now.Month() == anchor.Month():
		return now.Day() >= clampDay(anchor.Day(), now.Year(), now.Month())
	default:
		return true
	}
}

func clampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return min(day, last)
}

// DuenessStrategies maps each interval to its checker.
type DuenessStrategies map[core.Interval]DuenessChecker

// DefaultDuenessStrategies returns a fresh registry with the four built-in checkers.
func DefaultDuenessStrategies() DuenessStrategies {
	return DuenessStrategies{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
}

// Checker returns the checker registered for interval.
func (s DuenessStrategies) Checker(interval core.Interval) (DuenessChecker, error) {
	checker, ok := s[interval]
	if !ok {
		return nil, fmt.Errorf("no dueness checker for %q: %w", interval, core.ErrInvalidInterval)
	}
	return checker, nil
}
