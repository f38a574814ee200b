package services

import (
	"slices"

	"fintrack/internal/categorize"
	"fintrack/internal/core"
)

// Overviews are keyed by the collection versions they were computed from, so any
// mutation of transactions or categories makes older entries unreachable.
type summaryKey struct {
	year, month  int
	transactions uint64
	categories   uint64
}

// MonthOverview totals the month's expenses and income and breaks expenses down by
// category, in category order, with uncategorized spending last. Transfers are not
// counted.
func (l *Ledger) MonthOverview(year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.Invalidf("month %d out of range", month)
	}
	key := summaryKey{year: year, month: month, transactions: l.Transactions.Version(), categories: l.Categories.Version()}
	if ov, ok := l.summaries.Get(key); ok {
		ov.ByCategory = slices.Clone(ov.ByCategory)
		return ov, nil
	}
	l.summaries.CleanExpired()

	from, to := core.MonthRange(year, month)
	ov := core.MonthOverview{Year: year, Month: month, Expenses: core.Zero, Income: core.Zero}
	byCategory := map[core.ID]core.Money{}
	for tx := range l.Transactions.Query(func(tx core.Transaction) bool { return core.InRange(tx.Date, from, to) }) {
		amount := tx.Amount.Abs()
		switch tx.Type {
		case core.Income:
			ov.Income = ov.Income.Add(amount)
		case core.Expense:
			ov.Expenses = ov.Expenses.Add(amount)
			byCategory[tx.CategoryID] = byCategory[tx.CategoryID].Add(amount)
		}
	}

	for c := range l.Categories.All() {
		if amount, ok := byCategory[c.ID]; ok {
			ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{CategoryID: c.ID, Name: c.Name, Amount: amount})
		}
	}
	if amount, ok := byCategory[""]; ok {
		ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{Name: categorize.Uncategorized, Amount: amount})
	}

	l.summaries.Set(key, ov)
	ov.ByCategory = slices.Clone(ov.ByCategory)
	return ov, nil
}
