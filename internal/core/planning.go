package core

import (
	"slices"
	"time"
)

type (
	// Budget caps expense spending in one category per period. Spent is always derived
	// from transactions and never stored.
	Budget struct {
		ID         ID        `json:"id"`
		CategoryID ID        `json:"category_id"`
		Limit      Money     `json:"limit"`
		Period     Interval  `json:"period"`
		StartDate  time.Time `json:"start_date"`
		Active     bool      `json:"active"`
	}

	Bill struct {
		ID         ID        `json:"id"`
		Name       string    `json:"name"`
		Amount     Money     `json:"amount"`
		DueDate    time.Time `json:"due_date"`
		Every      Interval  `json:"every,omitempty"` // empty for one-off bills
		Paid       bool      `json:"paid"`
		LastPaid   time.Time `json:"last_paid,omitempty"`
		AccountID  ID        `json:"account_id,omitempty"`
		CategoryID ID        `json:"category_id,omitempty"`
	}

	Contribution struct {
		Amount Money     `json:"amount"`
		At     time.Time `json:"at"`
	}

	// SavingsGoal tracks progress towards a target. The current amount is the starting
	// amount plus every contribution.
	SavingsGoal struct {
		ID            ID             `json:"id"`
		Name          string         `json:"name"`
		Target        Money          `json:"target"`
		Initial       Money          `json:"initial"`
		TargetDate    *time.Time     `json:"target_date,omitempty"`
		CategoryID    ID             `json:"category_id,omitempty"`
		Contributions []Contribution `json:"contributions,omitempty"`
		Active        bool           `json:"active"`
	}
)

func NewBudget(ids IDGenerator, categoryID ID, limit Money, period Interval, start time.Time) Budget {
	return Budget{
		ID:         ids(),
		CategoryID: categoryID,
		Limit:      limit,
		Period:     period,
		StartDate:  start,
		Active:     true,
	}
}

func (b Budget) RecordID() ID  { return b.ID }
func (b Budget) Clone() Budget { return b }

func (b Budget) Validate() error {
	if err := validateID(b.ID); err != nil {
		return err
	}
	if b.CategoryID.IsZero() {
		return ErrMissingCategory
	}
	if err := b.Limit.ValidateNonNegative(); err != nil {
		return err
	}
	switch b.Period {
	case Weekly, Monthly, Yearly:
	default:
		return ErrInvalidInterval
	}
	return validateDate(b.StartDate)
}

// Window returns the budget period containing now.
func (b Budget) Window(now time.Time) (from, to time.Time) {
	return b.Period.Window(b.StartDate, now)
}

func NewBill(ids IDGenerator, name string, amount Money, due time.Time, every Interval) Bill {
	return Bill{ID: ids(), Name: name, Amount: amount, DueDate: due, Every: every}
}

func (b Bill) RecordID() ID { return b.ID }
func (b Bill) Clone() Bill  { return b }

func (b Bill) Validate() error {
	if err := validateID(b.ID); err != nil {
		return err
	}
	if err := validateName(b.Name); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDate(b.DueDate); err != nil {
		return err
	}
	if b.Every != "" {
		return b.Every.Validate()
	}
	return nil
}

// IsRecurring reports whether paying the bill rolls it to a next due date.
func (b Bill) IsRecurring() bool { return b.Every != "" }

// IsOverdue reports whether the bill is unpaid past its due date.
func (b Bill) IsOverdue(now time.Time) bool {
	return !b.Paid && now.After(b.DueDate)
}

func NewSavingsGoal(ids IDGenerator, name string, target, initial Money) SavingsGoal {
	return SavingsGoal{ID: ids(), Name: name, Target: target, Initial: initial, Active: true}
}

func (g SavingsGoal) RecordID() ID { return g.ID }

func (g SavingsGoal) Clone() SavingsGoal {
	c := g
	c.TargetDate = cloneTime(g.TargetDate)
	c.Contributions = slices.Clone(g.Contributions)
	return c
}

func (g SavingsGoal) Validate() error {
	if err := validateID(g.ID); err != nil {
		return err
	}
	if err := validateName(g.Name); err != nil {
		return err
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if err := g.Initial.ValidateNonNegative(); err != nil {
		return err
	}
	for _, c := range g.Contributions {
		if err := c.Amount.Validate(); err != nil {
			return err
		}
		if err := validateDate(c.At); err != nil {
			return err
		}
	}
	return nil
}

// CurrentAmount folds the contribution log over the starting amount.
func (g SavingsGoal) CurrentAmount() Money {
	total := g.Initial
	for _, c := range g.Contributions {
		total = total.Add(c.Amount)
	}
	return total
}

// Progress summarises the goal.
func (g SavingsGoal) Progress() GoalProgress {
	current := g.CurrentAmount()
	remaining := g.Target.Sub(current)
	if remaining.IsNegative() {
		remaining = Zero
	}
	ratio := current.Ratio(g.Target)
	if ratio > 1 {
		ratio = 1
	}
	return GoalProgress{
		Goal:      g.Clone(),
		Current:   current,
		Remaining: remaining,
		Progress:  ratio,
		Reached:   current.Cmp(g.Target) >= 0,
	}
}
