package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// AccountTransactions returns the transactions that move money in or out of the
// account, oldest first.
func (l *Ledger) AccountTransactions(id core.ID) []core.Transaction {
	txs := slices.Collect(l.Transactions.Query(func(tx core.Transaction) bool { return tx.Touches(id) }))
	slices.SortStableFunc(txs, func(a, b core.Transaction) int { return a.Date.Compare(b.Date) })
	return txs
}

// AccountBalance is the opening balance plus income, minus expenses, with transfers
// moved between the two accounts. The transaction type decides the direction; the
// sign of the stored amount is ignored.
func (l *Ledger) AccountBalance(id core.ID) (core.Money, error) {
	a, ok := l.Accounts.Get(id)
	if !ok {
		return core.Zero, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	balance := a.Balance
	for tx := range l.Transactions.Query(func(tx core.Transaction) bool { return tx.Touches(id) }) {
		amount := tx.Amount.Abs()
		switch {
		case tx.Type == core.Income:
			balance = balance.Add(amount)
		case tx.Type == core.Expense:
			balance = balance.Sub(amount)
		case tx.AccountID == id:
			balance = balance.Sub(amount)
		default:
			balance = balance.Add(amount)
		}
	}
	return balance, nil
}

// BudgetStatus folds the expenses in the budget's category over the period that
// contains now.
func (l *Ledger) BudgetStatus(id core.ID, now time.Time) (core.BudgetStatus, error) {
	b, ok := l.Budgets.Get(id)
	if !ok {
		return core.BudgetStatus{}, fmt.Errorf("budget %q: %w", id, core.ErrNotFound)
	}
	from, to := b.Window(now)
	spent := l.spent(b.CategoryID, from, to)

	remaining := b.Limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = core.Zero
	}
	return core.BudgetStatus{
		Budget:      b,
		PeriodStart: from,
		PeriodEnd:   to,
		Spent:       spent,
		Remaining:   remaining,
		Progress:    spent.Ratio(b.Limit),
	}, nil
}

// ActiveBudgetStatuses reports every active budget at now, in collection order.
func (l *Ledger) ActiveBudgetStatuses(now time.Time) []core.BudgetStatus {
	var out []core.BudgetStatus
	for b := range l.Budgets.Query(func(b core.Budget) bool { return b.Active }) {
		if s, err := l.BudgetStatus(b.ID, now); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (l *Ledger) spent(category core.ID, from, to time.Time) core.Money {
	total := core.Zero
	for tx := range l.Transactions.Query(func(tx core.Transaction) bool {
		return tx.Type == core.Expense && tx.CategoryID == category && core.InRange(tx.Date, from, to)
	}) {
		total = total.Add(tx.Amount.Abs())
	}
	return total
}

// CategoryBudget returns the first active budget on the category.
func (l *Ledger) CategoryBudget(categoryID core.ID) (core.Budget, bool) {
	for b := range l.Budgets.Query(func(b core.Budget) bool { return b.Active && b.CategoryID == categoryID }) {
		return b, true
	}
	return core.Budget{}, false
}

func (l *Ledger) GoalProgress(id core.ID) (core.GoalProgress, error) {
	g, ok := l.Goals.Get(id)
	if !ok {
		return core.GoalProgress{}, fmt.Errorf("goal %q: %w", id, core.ErrNotFound)
	}
	return g.Progress(), nil
}

// Contribute appends a contribution to the goal's log. It is the only way the
// current amount changes.
func (l *Ledger) Contribute(ctx context.Context, goalID core.ID, amount core.Money, at time.Time) error {
	return l.Goals.Update(ctx, goalID, func(g *core.SavingsGoal) error {
		g.Contributions = append(g.Contributions, core.Contribution{Amount: amount, At: at})
		return nil
	})
}

// PayBill marks the bill paid at now. A bill linked to an account also records an
// expense transaction, whose ID is returned. Recurring bills move to their next due
// date and become unpaid again.
func (l *Ledger) PayBill(ctx context.Context, id core.ID, now time.Time) (core.ID, error) {
	bill, ok := l.Bills.Get(id)
	if !ok {
		return "", fmt.Errorf("pay bill %q: %w", id, core.ErrNotFound)
	}
	if bill.Paid {
		return "", core.Invalidf("bill %q is already paid", id)
	}

	var errs []error
	var txID core.ID
	if !bill.AccountID.IsZero() {
		tx := core.NewTransaction(l.ids, bill.Amount, core.Expense, bill.Name, now, bill.AccountID)
		tx.CategoryID = bill.CategoryID
		if err := l.Transactions.Add(ctx, tx); !tolerate(err) {
			return "", fmt.Errorf("pay bill %q: %w", id, err)
		} else if err != nil {
			errs = append(errs, err)
		}
		txID = tx.ID
	}

	err := l.Bills.Update(ctx, id, func(b *core.Bill) error {
		b.LastPaid = now
		b.Paid = true
		if b.IsRecurring() {
			b.DueDate = b.Every.Advance(b.DueDate, 1)
			b.Paid = false
		}
		return nil
	})
	if !tolerate(err) {
		if !txID.IsZero() {
			// The bill stays unpaid, so its payment must go too.
			if rmErr := l.Transactions.Remove(ctx, txID); rmErr != nil {
				errs = append(errs, rmErr)
			}
		}
		return "", errors.Join(append(errs, fmt.Errorf("pay bill %q: %w", id, err))...)
	}
	if err != nil {
		errs = append(errs, err)
	}

	l.logger.InfoContext(ctx, "Bill paid",
		log.FieldRecordID, id.String(),
		log.FieldAmount, bill.Amount.String(),
		"transaction_id", txID.String())
	return txID, errors.Join(errs...)
}

// UpcomingBills lists unpaid bills due between now and now+within, soonest first.
func (l *Ledger) UpcomingBills(now time.Time, within time.Duration) []core.Bill {
	end := now.Add(within)
	return l.sortedBills(func(b core.Bill) bool {
		return !b.Paid && !b.DueDate.Before(now) && !b.DueDate.After(end)
	})
}

// OverdueBills lists unpaid bills past their due date, oldest first.
func (l *Ledger) OverdueBills(now time.Time) []core.Bill {
	return l.sortedBills(func(b core.Bill) bool { return b.IsOverdue(now) })
}

func (l *Ledger) sortedBills(pred func(core.Bill) bool) []core.Bill {
	bills := slices.Collect(l.Bills.Query(pred))
	slices.SortStableFunc(bills, func(a, b core.Bill) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), cmp.Compare(a.Name, b.Name))
	})
	return bills
}
