package services

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDuenessCheckers(t *testing.T) {
	tests := []struct {
		name    string
		checker DuenessChecker
		lastRun time.Time
		now     time.Time
		anchor  time.Time
		want    bool
	}{
		{"daily never run", DailyChecker{}, time.Time{}, at(2024, 1, 15), at(2024, 1, 1), true},
		{"daily ran today", DailyChecker{}, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), at(2024, 1, 15), at(2024, 1, 1), false},
		{"daily ran yesterday", DailyChecker{}, at(2024, 1, 14), at(2024, 1, 15), at(2024, 1, 1), true},

		{"weekly 3 days", WeeklyChecker{}, at(2024, 1, 12), at(2024, 1, 15), at(2024, 1, 1), false},
		{"weekly 7 days", WeeklyChecker{}, at(2024, 1, 8), at(2024, 1, 15), at(2024, 1, 1), true},
		{"weekly 10 days", WeeklyChecker{}, at(2024, 1, 5), at(2024, 1, 15), at(2024, 1, 1), true},

		{"monthly same month", MonthlyChecker{}, at(2024, 1, 10), at(2024, 1, 15), at(2024, 1, 10), false},
		{"monthly before anchor day", MonthlyChecker{}, at(2024, 1, 15), at(2024, 2, 10), at(2024, 1, 15), false},
		{"monthly on anchor day", MonthlyChecker{}, at(2024, 1, 15), at(2024, 2, 15), at(2024, 1, 15), true},
		{"monthly day 31 in leap February", MonthlyChecker{}, at(2024, 1, 31), at(2024, 2, 29), at(2024, 1, 31), true},
		{"monthly day 31 in April", MonthlyChecker{}, at(2024, 3, 31), at(2024, 4, 29), at(2024, 1, 31), false},

		{"yearly same year", YearlyChecker{}, at(2024, 3, 15), at(2024, 6, 15), at(2024, 3, 15), false},
		{"yearly before anchor month", YearlyChecker{}, at(2024, 6, 15), at(2025, 3, 15), at(2024, 6, 15), false},
		{"yearly past anchor month", YearlyChecker{}, at(2024, 3, 15), at(2025, 6, 15), at(2024, 3, 15), true},
		{"yearly anchor month before day", YearlyChecker{}, at(2024, 6, 15), at(2025, 6, 10), at(2024, 6, 15), false},
		{"yearly anchor month on day", YearlyChecker{}, at(2024, 6, 15), at(2025, 6, 15), at(2024, 6, 15), true},
		{"yearly Feb 29 anchor in common year", YearlyChecker{}, at(2024, 2, 29), at(2025, 2, 28), at(2024, 2, 29), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.IsDue(tt.lastRun, tt.now, tt.anchor); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuenessStrategiesChecker(t *testing.T) {
	s := DefaultDuenessStrategies()
	for _, iv := range []core.Interval{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if c, err := s.Checker(iv); err != nil || c == nil {
			t.Fatalf("Checker(%s) = %v, %v", iv, c, err)
		}
	}
	if _, err := s.Checker("biweekly"); !errors.Is(err, core.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	s["biweekly"] = WeeklyChecker{}
	if _, err := s.Checker("biweekly"); err != nil {
		t.Fatalf("custom checker not registered: %v", err)
	}
	if _, err := DefaultDuenessStrategies().Checker("biweekly"); err == nil {
		t.Fatalf("registries share state")
	}
}
