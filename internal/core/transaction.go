package core

import (
	"slices"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type (
	TransactionType string

	Priority string

	// Location is a WGS84 coordinate.
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}

	// Recurrence turns a transaction into a template that ProcessRecurring copies.
	Recurrence struct {
		Every   Interval   `json:"every"`
		EndDate *time.Time `json:"end_date,omitempty"`
		LastRun time.Time  `json:"last_run"`
	}

	// AttachmentRef points at a payload held by the blob store.
	AttachmentRef struct {
		BlobRef   string `json:"blob_ref"`
		Filename  string `json:"filename"`
		MediaType string `json:"media_type"`
		Size      int    `json:"size"`
	}

	Transaction struct {
		ID          ID              `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		CategoryID  ID              `json:"category_id,omitempty"`
		Merchant    string          `json:"merchant"`
		Date        time.Time       `json:"date"`
		AccountID   ID              `json:"account_id"`
		ToAccountID ID              `json:"to_account_id,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		Tags        []string        `json:"tags,omitempty"`
		Location    *Location       `json:"location,omitempty"`
		Receipt     *AttachmentRef  `json:"receipt,omitempty"`
		Priority    Priority        `json:"priority"`
		Recurrence  *Recurrence     `json:"recurrence,omitempty"`
	}
)

// NewTransaction builds a medium-priority transaction with a fresh identifier.
func NewTransaction(ids IDGenerator, amount Money, typ TransactionType, merchant string, date time.Time, accountID ID) Transaction {
	return Transaction{
		ID:        ids(),
		Amount:    amount,
		Type:      typ,
		Merchant:  merchant,
		Date:      date,
		AccountID: accountID,
		Priority:  PriorityMedium,
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense, Transfer:
		return nil
	default:
		return ErrInvalidType
	}
}

func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	default:
		return ErrInvalidPriority
	}
}

func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}

func (t Transaction) RecordID() ID { return t.ID }

func (t Transaction) Clone() Transaction {
	c := t
	c.Tags = slices.Clone(t.Tags)
	if t.Location != nil {
		l := *t.Location
		c.Location = &l
	}
	if t.Receipt != nil {
		r := *t.Receipt
		c.Receipt = &r
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		r.EndDate = cloneTime(t.Recurrence.EndDate)
		c.Recurrence = &r
	}
	return c
}

// Validate checks field invariants. Reference existence is checked by the ledger.
func (t Transaction) Validate() error {
	if err := validateID(t.ID); err != nil {
		return err
	}
	if t.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := validateDate(t.Date); err != nil {
		return err
	}
	if t.AccountID.IsZero() {
		return ErrMissingAccount
	}
	if t.Type == Transfer {
		if t.ToAccountID.IsZero() {
			return Invalidf("transfer requires a destination account")
		}
		if t.ToAccountID == t.AccountID {
			return Invalidf("transfer source and destination must differ")
		}
	} else if !t.ToAccountID.IsZero() {
		return Invalidf("only transfers have a destination account")
	}
	if len(t.Merchant) > 200 {
		return Invalidf("merchant too long (max 200 characters)")
	}
	if err := t.Priority.Validate(); err != nil {
		return err
	}
	if t.Location != nil {
		if err := t.Location.Validate(); err != nil {
			return err
		}
	}
	if t.Receipt != nil && t.Receipt.BlobRef == "" {
		return ErrInvalidAttachment
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Every.Validate(); err != nil {
			return err
		}
		if t.Recurrence.EndDate != nil && t.Recurrence.EndDate.Before(t.Date) {
			return Invalidf("recurrence end date must be after start date")
		}
	}
	return nil
}

// Normalize trims the merchant and turns Tags into a sorted set.
func (t *Transaction) Normalize() {
	t.Merchant = strings.TrimSpace(t.Merchant)
	t.Tags = NormalizeTags(t.Tags)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// NormalizeTags trims, dedupes and sorts tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// HasTag reports membership in the tag set.
func (t Transaction) HasTag(tag string) bool {
	_, ok := slices.BinarySearch(t.Tags, tag)
	return ok
}

// IsRecurring reports whether the transaction is a recurrence template.
func (t Transaction) IsRecurring() bool { return t.Recurrence != nil }

// Touches reports whether the transaction moves money in or out of account.
func (t Transaction) Touches(account ID) bool {
	return t.AccountID == account || (!t.ToAccountID.IsZero() && t.ToAccountID == account)
}
