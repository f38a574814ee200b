package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ProcessRecurring copies every due recurring template into a concrete transaction
// dated now and stamps the template's last run. A template that has never run counts
// its own date as the first occurrence. Templates past their end date, or not yet
// started, are skipped. A failing template is logged and does not stop the others.
func (l *Ledger) ProcessRecurring(ctx context.Context, now time.Time) (int, error) {
	templates := slices.Collect(l.Transactions.Query(core.Transaction.IsRecurring))

	l.logger.InfoContext(ctx, "Processing recurring transactions",
		log.FieldOperation, log.OpProcess,
		"total_templates", len(templates),
		"processing_date", now.Format(time.DateOnly))

	var errs []error
	processed := 0
	for _, tpl := range templates {
		due, err := l.isDue(tpl, now)
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to check if template is due",
				log.FieldRecordID, tpl.ID.String(),
				log.FieldError, err.Error())
			continue
		}
		if !due {
			continue
		}

		occurrence := tpl.Clone()
		occurrence.ID = l.ids()
		occurrence.Date = now
		occurrence.Recurrence = nil
		occurrence.Receipt = nil

		if err := l.Transactions.Add(ctx, occurrence); !tolerate(err) {
			l.logger.ErrorContext(ctx, "Failed to create transaction from recurring template",
				log.FieldRecordID, tpl.ID.String(),
				log.FieldMerchant, tpl.Merchant,
				log.FieldError, err.Error())
			errs = append(errs, fmt.Errorf("template %q: %w", tpl.ID, err))
			continue
		} else if err != nil {
			errs = append(errs, err)
		}

		// The copy exists from here on, so a failed stamp is reported but still counts.
		err = l.Transactions.Update(ctx, tpl.ID, func(t *core.Transaction) error {
			t.Recurrence.LastRun = now
			return nil
		})
		if err != nil {
			l.logger.ErrorContext(ctx, "Failed to update last run",
				log.FieldRecordID, tpl.ID.String(),
				log.FieldError, err.Error())
			errs = append(errs, err)
		}

		processed++
		l.logger.InfoContext(ctx, "Created transaction from recurring template",
			log.FieldRecordID, tpl.ID.String(),
			log.FieldMerchant, tpl.Merchant,
			log.FieldAmount, tpl.Amount.String(),
			"every", string(tpl.Recurrence.Every))
	}

	l.logger.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates))
	return processed, errors.Join(errs...)
}

func (l *Ledger) isDue(tpl core.Transaction, now time.Time) (bool, error) {
	r := tpl.Recurrence
	if now.Before(tpl.Date) {
		return false, nil
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false, nil
	}
	checker, err := l.dueness.Checker(r.Every)
	if err != nil {
		return false, err
	}
	lastRun := r.LastRun
	if lastRun.IsZero() {
		lastRun = tpl.Date
	}
	return checker.IsDue(lastRun, now, tpl.Date), nil
}
