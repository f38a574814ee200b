package core

import "time"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID ID
	Name       string
	Amount     Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Expenses   Money
	Income     Money
	ByCategory []CategoryAmount
}

// Net is income minus expenses.
func (o MonthOverview) Net() Money { return o.Income.Sub(o.Expenses) }

// BudgetStatus is the derived state of a budget for the period containing a given instant.
type BudgetStatus struct {
	Budget      Budget
	PeriodStart time.Time
	PeriodEnd   time.Time
	Spent       Money
	Remaining   Money
	Progress    float64 // Spent/Limit, 0 when the limit is zero
}

// OverBudget reports whether spending exceeded the limit.
func (s BudgetStatus) OverBudget() bool { return s.Spent.Cmp(s.Budget.Limit) > 0 }

// GoalProgress is the derived state of a savings goal.
type GoalProgress struct {
	Goal      SavingsGoal
	Current   Money
	Remaining Money
	Progress  float64 // Current/Target, capped at 1
	Reached   bool
}
