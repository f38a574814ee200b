package core

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Families name each persisted collection. The value doubles as the store key.
const (
	FamilyAccounts     Family = "accounts"
	FamilyCategories   Family = "categories"
	FamilyTransactions Family = "transactions"
	FamilyBudgets      Family = "budgets"
	FamilyBills        Family = "bills"
	FamilyGoals        Family = "goals"
	FamilyFolders      Family = "folders"
	FamilyNotes        Family = "notes"
)

type (
	// ID identifies a record within its family. It is assigned once at construction.
	ID string

	// IDGenerator produces fresh identifiers. Production code uses NewUUID; tests
	// inject SequentialIDs for deterministic output.
	IDGenerator func() ID

	Family string
)

// Families lists every family in load order: owners before dependents.
func Families() []Family {
	return []Family{
		FamilyAccounts,
		FamilyCategories,
		FamilyTransactions,
		FamilyBudgets,
		FamilyBills,
		FamilyGoals,
		FamilyFolders,
		FamilyNotes,
	}
}

// Key returns the store key of the family blob.
func (f Family) Key() string { return string(f) }

func (f Family) String() string { return string(f) }

func (id ID) String() string { return string(id) }

// IsZero reports whether id is unset. Optional references use the zero ID.
func (id ID) IsZero() bool { return id == "" }

// NewUUID returns a random v4 UUID identifier.
func NewUUID() ID {
	return ID(uuid.NewString())
}

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() ID {
		return ID(fmt.Sprintf("%s-%d", prefix, n.Add(1)))
	}
}

// Record is implemented by every persisted entity.
type Record[T any] interface {
	RecordID() ID
	Clone() T
	Validate() error
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return Invalidf("name too long (max 200 characters)")
	}
	return nil
}

func validateDate(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func validateID(id ID) error {
	if id.IsZero() {
		return ErrEmptyID
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
