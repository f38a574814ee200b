// Package services wires the per-family repositories into a Ledger: referential
// validation, cascades on removal, derived aggregates, recurring transactions and
// attachments all live here.
package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/categorize"
	"fintrack/internal/codec"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/repository"
	"fintrack/internal/storage"
)

var errNoBlobStore = fmt.Errorf("%w: no blob store configured", core.ErrPersistence)

// Ledger owns one repository per family. Construct it with Open.
type Ledger struct {
	Accounts     *repository.Repository[core.Account]
	Categories   *repository.Repository[core.Category]
	Transactions *repository.Repository[core.Transaction]
	Budgets      *repository.Repository[core.Budget]
	Bills        *repository.Repository[core.Bill]
	Goals        *repository.Repository[core.SavingsGoal]
	Folders      *repository.Repository[core.NoteFolder]
	Notes        *repository.Repository[core.Note]

	store       storage.Store
	blobs       storage.BlobStore
	notifier    *notify.Notifier
	logger      *log.Logger
	events      *log.StructuredLogger
	ids         core.IDGenerator
	now         func() time.Time
	categorizer *categorize.Categorizer
	dueness     DuenessStrategies
	summaries   *cache.LRUCache[summaryKey, core.MonthOverview]

	loadErrors map[core.Family]error
}

type options struct {
	logger      *log.Logger
	notifier    *notify.Notifier
	ids         core.IDGenerator
	now         func() time.Time
	categorizer *categorize.Categorizer
	dueness     DuenessStrategies
	cacheSize   int
	cacheTTL    time.Duration
}

// Option configures Open.
type Option func(*options)

func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

// WithNotifier shares a notifier with other components. Open creates one otherwise.
func WithNotifier(n *notify.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithIDGenerator replaces core.NewUUID for records and blob references the ledger creates.
func WithIDGenerator(ids core.IDGenerator) Option { return func(o *options) { o.ids = ids } }

// WithClock replaces time.Now for timestamps the ledger sets itself.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithCategorizer(c *categorize.Categorizer) Option {
	return func(o *options) { o.categorizer = c }
}

// WithDuenessChecker registers or overrides the checker for interval.
func WithDuenessChecker(interval core.Interval, c DuenessChecker) Option {
	return func(o *options) { o.dueness[interval] = c }
}

// WithSummaryCache sizes the month overview cache. A zero ttl never expires entries.
func WithSummaryCache(size int, ttl time.Duration) Option {
	return func(o *options) { o.cacheSize, o.cacheTTL = size, ttl }
}

// Open loads every family from store. A family whose blob cannot be decoded starts
// empty and its error is kept in LoadErrors; the other families load normally, and
// their references to records that no longer exist are cascaded as if the owners had
// been removed. Only a failure to read the store itself is returned.
func Open(ctx context.Context, store storage.Store, blobs storage.BlobStore, opts ...Option) (*Ledger, error) {
	o := options{
		ids:       core.NewUUID,
		now:       time.Now,
		dueness:   DefaultDuenessStrategies(),
		cacheSize: 32,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}
	if o.notifier == nil {
		o.notifier = notify.New()
	}
	if o.categorizer == nil {
		o.categorizer = categorize.New(categorize.DefaultRules()...)
	}

	logger := o.logger.WithComponent(log.ComponentLedger)
	l := &Ledger{
		store:       store,
		blobs:       blobs,
		notifier:    o.notifier,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		ids:         o.ids,
		now:         o.now,
		categorizer: o.categorizer,
		dueness:     o.dueness,
		summaries:   cache.NewLRUCache[summaryKey, core.MonthOverview](o.cacheSize, o.cacheTTL),
		loadErrors:  map[core.Family]error{},
	}
	l.wire(o.logger)

	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	restorers := map[core.Family]func([]byte) error{
		core.FamilyAccounts:     l.Accounts.Restore,
		core.FamilyCategories:   l.Categories.Restore,
		core.FamilyTransactions: l.Transactions.Restore,
		core.FamilyBudgets:      l.Budgets.Restore,
		core.FamilyBills:        l.Bills.Restore,
		core.FamilyGoals:        l.Goals.Restore,
		core.FamilyFolders:      l.Folders.Restore,
		core.FamilyNotes:        l.Notes.Restore,
	}
	for _, family := range core.Families() {
		if err := restorers[family](data[family.Key()]); err != nil {
			l.loadErrors[family] = err
			logger.WarnContext(ctx, "Family could not be decoded, starting empty",
				log.FieldFamily, family.String(),
				log.FieldError, err.Error())
		}
	}

	if err := l.repairRefs(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to repair dangling references",
			log.FieldOperation, log.OpCascade,
			log.FieldError, err.Error())
	}

	logger.InfoContext(ctx, "Ledger opened",
		log.FieldCount, len(data),
		"decode_failures", len(l.loadErrors))
	return l, nil
}

func (l *Ledger) wire(base *log.Logger) {
	n := l.notifier
	l.Accounts = repository.New(core.FamilyAccounts, l.store, codec.JSON[core.Account]{}, n, base,
		repository.WithBeforeRemove(l.cascadeAccount))
	l.Categories = repository.New(core.FamilyCategories, l.store, codec.JSON[core.Category]{}, n, base,
		repository.WithBeforeRemove(l.cascadeCategory))
	l.Transactions = repository.New(core.FamilyTransactions, l.store, codec.JSON[core.Transaction]{}, n, base,
		repository.WithValidator(l.checkTransactionRefs),
		repository.WithBeforeRemove(l.dropReceipt))
	l.Budgets = repository.New(core.FamilyBudgets, l.store, codec.JSON[core.Budget]{}, n, base,
		repository.WithValidator(func(b core.Budget) error { return l.requireCategory(b.CategoryID) }))
	l.Bills = repository.New(core.FamilyBills, l.store, codec.JSON[core.Bill]{}, n, base,
		repository.WithValidator(l.checkBillRefs))
	l.Goals = repository.New(core.FamilyGoals, l.store, codec.JSON[core.SavingsGoal]{}, n, base,
		repository.WithValidator(func(g core.SavingsGoal) error { return l.optionalCategory(g.CategoryID) }))
	l.Folders = repository.New(core.FamilyFolders, l.store, codec.JSON[core.NoteFolder]{}, n, base,
		repository.WithBeforeRemove(l.cascadeFolder))
	l.Notes = repository.New(core.FamilyNotes, l.store, codec.JSON[core.Note]{}, n, base,
		repository.WithValidator(l.checkNoteRefs),
		repository.WithBeforeRemove(l.dropAttachments))
}

// Subscribe registers fn for change events of the given families, or all of them.
func (l *Ledger) Subscribe(fn notify.Observer, families ...core.Family) (unsubscribe func()) {
	return l.notifier.Subscribe(fn, families...)
}

// LoadErrors returns the decode failure of each family that started empty.
func (l *Ledger) LoadErrors() map[core.Family]error {
	return maps.Clone(l.loadErrors)
}

type flusher interface {
	Family() core.Family
	Dirty() bool
	Flush(ctx context.Context) error
}

func (l *Ledger) repos() []flusher {
	return []flusher{l.Accounts, l.Categories, l.Transactions, l.Budgets, l.Bills, l.Goals, l.Folders, l.Notes}
}

// Dirty lists the families whose last write to the store failed.
func (l *Ledger) Dirty() []core.Family {
	var out []core.Family
	for _, r := range l.repos() {
		if r.Dirty() {
			out = append(out, r.Family())
		}
	}
	return out
}

// Flush retries the write of every dirty family.
func (l *Ledger) Flush(ctx context.Context) error {
	var errs []error
	for _, r := range l.repos() {
		if !r.Dirty() {
			continue
		}
		if err := r.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CategorySuggestion is a categorizer guess resolved against existing categories.
type CategorySuggestion struct {
	CategoryID core.ID
	Name       string
	Confidence float64
}

// SuggestCategory runs the categorizer and resolves the suggested name to a category
// by case-insensitive name. Names with no matching category yield the zero ID and
// zero confidence.
func (l *Ledger) SuggestCategory(merchant string) CategorySuggestion {
	s := l.categorizer.Suggest(merchant)
	for c := range l.Categories.Query(func(c core.Category) bool { return sameName(c.Name, s.Category) }) {
		return CategorySuggestion{CategoryID: c.ID, Name: c.Name, Confidence: s.Confidence}
	}
	return CategorySuggestion{Name: s.Category}
}

// tolerate reports whether err leaves the in-memory change applied, in which case a
// multi-step operation carries on and reports it at the end.
func tolerate(err error) bool {
	return err == nil || errors.Is(err, core.ErrPersistence)
}
