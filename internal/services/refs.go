package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (l *Ledger) checkTransactionRefs(tx core.Transaction) error {
	if err := l.requireAccount(tx.AccountID); err != nil {
		return err
	}
	if !tx.ToAccountID.IsZero() {
		if err := l.requireAccount(tx.ToAccountID); err != nil {
			return err
		}
	}
	return l.optionalCategory(tx.CategoryID)
}

func (l *Ledger) checkBillRefs(b core.Bill) error {
	if !b.AccountID.IsZero() {
		if err := l.requireAccount(b.AccountID); err != nil {
			return err
		}
	}
	return l.optionalCategory(b.CategoryID)
}

func (l *Ledger) checkNoteRefs(n core.Note) error {
	if n.FolderID.IsZero() || l.Folders.Has(n.FolderID) {
		return nil
	}
	return fmt.Errorf("%w: folder %q", core.ErrDanglingRef, n.FolderID)
}

func (l *Ledger) requireAccount(id core.ID) error {
	if l.Accounts.Has(id) {
		return nil
	}
	return fmt.Errorf("%w: account %q", core.ErrDanglingRef, id)
}

func (l *Ledger) requireCategory(id core.ID) error {
	if id.IsZero() {
		return core.ErrMissingCategory
	}
	if l.Categories.Has(id) {
		return nil
	}
	return fmt.Errorf("%w: category %q", core.ErrDanglingRef, id)
}

func (l *Ledger) optionalCategory(id core.ID) error {
	if id.IsZero() {
		return nil
	}
	return l.requireCategory(id)
}

// Removing an account deletes every transaction that moves money in or out of it
// and unlinks its bills. Every step is checked before the first one is committed.
func (l *Ledger) cascadeAccount(ctx context.Context, a core.Account) error {
	onAccount := func(b core.Bill) bool { return b.AccountID == a.ID }
	unlink := func(b *core.Bill) error { b.AccountID = ""; return nil }
	if err := errors.Join(
		l.Transactions.Idle(),
		l.Bills.CheckUpdateWhere(onAccount, unlink),
	); err != nil {
		return fmt.Errorf("cascade from %s: %w", core.FamilyAccounts, err)
	}

	n, err := l.Transactions.RemoveWhere(ctx, func(tx core.Transaction) bool { return tx.Touches(a.ID) })
	if err := l.cascadeResult(ctx, core.FamilyAccounts, a.ID, core.FamilyTransactions, n, err); err != nil {
		return err
	}
	n, err = l.Bills.UpdateWhere(ctx, onAccount, unlink)
	return l.cascadeResult(ctx, core.FamilyAccounts, a.ID, core.FamilyBills, n, err)
}

// Removing a category deletes its budgets and clears it from everything else. Every
// step is checked before the first one is committed.
func (l *Ledger) cascadeCategory(ctx context.Context, c core.Category) error {
	txIn := func(tx core.Transaction) bool { return tx.CategoryID == c.ID }
	txClear := func(tx *core.Transaction) error { tx.CategoryID = ""; return nil }
	billIn := func(b core.Bill) bool { return b.CategoryID == c.ID }
	billClear := func(b *core.Bill) error { b.CategoryID = ""; return nil }
	goalIn := func(g core.SavingsGoal) bool { return g.CategoryID == c.ID }
	goalClear := func(g *core.SavingsGoal) error { g.CategoryID = ""; return nil }
	if err := errors.Join(
		l.Budgets.Idle(),
		l.Transactions.CheckUpdateWhere(txIn, txClear),
		l.Bills.CheckUpdateWhere(billIn, billClear),
		l.Goals.CheckUpdateWhere(goalIn, goalClear),
	); err != nil {
		return fmt.Errorf("cascade from %s: %w", core.FamilyCategories, err)
	}

	n, err := l.Budgets.RemoveWhere(ctx, func(b core.Budget) bool { return b.CategoryID == c.ID })
	if err := l.cascadeResult(ctx, core.FamilyCategories, c.ID, core.FamilyBudgets, n, err); err != nil {
		return err
	}
	n, err = l.Transactions.UpdateWhere(ctx, txIn, txClear)
	if err := l.cascadeResult(ctx, core.FamilyCategories, c.ID, core.FamilyTransactions, n, err); err != nil {
		return err
	}
	n, err = l.Bills.UpdateWhere(ctx, billIn, billClear)
	if err := l.cascadeResult(ctx, core.FamilyCategories, c.ID, core.FamilyBills, n, err); err != nil {
		return err
	}
	n, err = l.Goals.UpdateWhere(ctx, goalIn, goalClear)
	return l.cascadeResult(ctx, core.FamilyCategories, c.ID, core.FamilyGoals, n, err)
}

// Removing a folder moves its notes to the root.
func (l *Ledger) cascadeFolder(ctx context.Context, f core.NoteFolder) error {
	n, err := l.Notes.UpdateWhere(ctx,
		func(note core.Note) bool { return note.FolderID == f.ID },
		func(note *core.Note) error { note.FolderID = ""; return nil })
	return l.cascadeResult(ctx, core.FamilyFolders, f.ID, core.FamilyNotes, n, err)
}

func (l *Ledger) dropReceipt(ctx context.Context, tx core.Transaction) error {
	if tx.Receipt != nil {
		l.deleteBlob(ctx, tx.Receipt.BlobRef)
	}
	return nil
}

func (l *Ledger) dropAttachments(ctx context.Context, n core.Note) error {
	for _, a := range n.Attachments {
		l.deleteBlob(ctx, a.BlobRef)
	}
	return nil
}

// deleteBlob removes a payload whose record is going away. A failure leaves an
// orphaned blob behind, which is logged rather than blocking the removal.
func (l *Ledger) deleteBlob(ctx context.Context, ref string) {
	if l.blobs == nil || ref == "" {
		return
	}
	if err := l.blobs.DeleteBlob(ctx, ref); err != nil {
		l.events.LogError(ctx, "Failed to delete attachment payload", err, log.ErrorTypePersistence, log.OpDelete,
			log.NewFields().WithFamily("blobs").WithRecords([]string{ref}, 0))
	}
}

// cascadeResult logs a dependent update. Write failures in the dependent family do
// not block the owner's removal: the dependent repository is left dirty for Flush.
func (l *Ledger) cascadeResult(ctx context.Context, owner core.Family, id core.ID, dependent core.Family, n int, err error) error {
	if !tolerate(err) {
		return fmt.Errorf("cascade to %s: %w", dependent, err)
	}
	if err != nil {
		l.events.LogError(ctx, "Cascade applied but not persisted", err, log.ErrorTypePersistence, log.OpCascade,
			log.NewFields().WithFamily(dependent.String()))
	}
	if n > 0 {
		l.logger.DebugContext(ctx, "Cascade applied",
			log.FieldOperation, log.OpCascade,
			"owner", owner.String(),
			log.FieldRecordID, id.String(),
			log.FieldFamily, dependent.String(),
			log.FieldCount, n)
	}
	return nil
}

// repairRefs applies the removal cascades to references whose owner is missing, as
// happens when an owner family could not be decoded. Changed families are persisted.
func (l *Ledger) repairRefs(ctx context.Context) error {
	missingAccount := func(id core.ID) bool { return !id.IsZero() && !l.Accounts.Has(id) }
	missingCategory := func(id core.ID) bool { return !id.IsZero() && !l.Categories.Has(id) }
	missingFolder := func(id core.ID) bool { return !id.IsZero() && !l.Folders.Has(id) }

	var errs []error
	record := func(family core.Family, n int, err error) {
		if n > 0 {
			l.logger.WarnContext(ctx, "Repaired dangling references",
				log.FieldOperation, log.OpCascade,
				log.FieldFamily, family.String(),
				log.FieldCount, n)
		}
		switch {
		case err == nil:
		case tolerate(err):
			l.events.LogError(ctx, "Repair applied but not persisted", err, log.ErrorTypePersistence, log.OpCascade,
				log.NewFields().WithFamily(family.String()))
		default:
			errs = append(errs, fmt.Errorf("repair %s: %w", family, err))
		}
	}

	n, err := l.Transactions.RemoveWhere(ctx, func(tx core.Transaction) bool {
		return !l.Accounts.Has(tx.AccountID) || missingAccount(tx.ToAccountID)
	})
	record(core.FamilyTransactions, n, err)
	n, err = l.Transactions.UpdateWhere(ctx,
		func(tx core.Transaction) bool { return missingCategory(tx.CategoryID) },
		func(tx *core.Transaction) error { tx.CategoryID = ""; return nil })
	record(core.FamilyTransactions, n, err)

	n, err = l.Budgets.RemoveWhere(ctx, func(b core.Budget) bool { return !l.Categories.Has(b.CategoryID) })
	record(core.FamilyBudgets, n, err)

	n, err = l.Bills.UpdateWhere(ctx,
		func(b core.Bill) bool { return missingAccount(b.AccountID) || missingCategory(b.CategoryID) },
		func(b *core.Bill) error {
			if missingAccount(b.AccountID) {
				b.AccountID = ""
			}
			if missingCategory(b.CategoryID) {
				b.CategoryID = ""
			}
			return nil
		})
	record(core.FamilyBills, n, err)

	n, err = l.Goals.UpdateWhere(ctx,
		func(g core.SavingsGoal) bool { return missingCategory(g.CategoryID) },
		func(g *core.SavingsGoal) error { g.CategoryID = ""; return nil })
	record(core.FamilyGoals, n, err)

	n, err = l.Notes.UpdateWhere(ctx,
		func(note core.Note) bool { return missingFolder(note.FolderID) },
		func(note *core.Note) error { note.FolderID = ""; return nil })
	record(core.FamilyNotes, n, err)

	return errors.Join(errs...)
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
