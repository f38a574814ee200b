package core

import (
	"errors"
	"testing"
	"time"
)

func TestSequentialIDs(t *testing.T) {
	next := SequentialIDs("tx")
	if a, b := next(), next(); a != "tx-1" || b != "tx-2" {
		t.Fatalf("got %s, %s", a, b)
	}
	if NewUUID() == NewUUID() {
		t.Fatalf("uuid generator repeated itself")
	}
}

func TestIdenticalFieldsDistinctIdentity(t *testing.T) {
	ids := SequentialIDs("a")
	a := NewAccount(ids, "Checking", Checking, NewMoney(1000), "usd")
	b := NewAccount(ids, "Checking", Checking, NewMoney(1000), "usd")
	if a.ID == b.ID {
		t.Fatalf("records built with the same fields share id %s", a.ID)
	}
	if a.Currency != "USD" {
		t.Fatalf("currency not normalised: %q", a.Currency)
	}
}

func TestTransactionValidate(t *testing.T) {
	ids := SequentialIDs("tx")
	day := NewDate(2025, 1, 1)
	good := NewTransaction(ids, MustMoney("25.99"), Expense, "Starbucks", day, "acc")
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	transfer := NewTransaction(ids, NewMoney(10), Transfer, "", day, "acc")
	transfer.ToAccountID = "sav"
	if err := transfer.Validate(); err != nil {
		t.Fatalf("transfer expected ok, got %v", err)
	}

	end := day.AddDate(0, 0, -1)
	bads := map[string]func(*Transaction){
		"empty id":         func(t *Transaction) { t.ID = "" },
		"zero amount":      func(t *Transaction) { t.Amount = Zero },
		"bad type":         func(t *Transaction) { t.Type = "gift" },
		"zero date":        func(t *Transaction) { t.Date = time.Time{} },
		"no account":       func(t *Transaction) { t.AccountID = "" },
		"bad priority":     func(t *Transaction) { t.Priority = "urgent" },
		"bad location":     func(t *Transaction) { t.Location = &Location{Latitude: 91} },
		"dest on expense":  func(t *Transaction) { t.ToAccountID = "sav" },
		"transfer no dest": func(t *Transaction) { t.Type = Transfer },
		"bad recurrence":   func(t *Transaction) { t.Recurrence = &Recurrence{Every: "hourly"} },
		"end before start": func(t *Transaction) { t.Recurrence = &Recurrence{Every: Monthly, EndDate: &end} },
		"empty receipt":    func(t *Transaction) { t.Receipt = &AttachmentRef{} },
	}
	for name, mutate := range bads {
		tx := good.Clone()
		mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestTransactionCloneIsDeep(t *testing.T) {
	end := NewDate(2026, 1, 1)
	tx := Transaction{
		Tags:       []string{"a"},
		Location:   &Location{Latitude: 1},
		Receipt:    &AttachmentRef{BlobRef: "r"},
		Recurrence: &Recurrence{Every: Monthly, EndDate: &end},
	}
	c := tx.Clone()
	c.Tags[0] = "b"
	c.Location.Latitude = 2
	c.Receipt.BlobRef = "x"
	c.Recurrence.Every = Weekly
	*c.Recurrence.EndDate = NewDate(2027, 1, 1)
	if tx.Tags[0] != "a" || tx.Location.Latitude != 1 || tx.Receipt.BlobRef != "r" ||
		tx.Recurrence.Every != Monthly || !tx.Recurrence.EndDate.Equal(end) {
		t.Fatalf("clone shares state with original: %+v", tx)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" food ", "work", "food", "", "  "})
	if len(got) != 2 || got[0] != "food" || got[1] != "work" {
		t.Fatalf("tags = %q", got)
	}
	if NormalizeTags([]string{" "}) != nil {
		t.Fatalf("expected nil for blank tags")
	}
	tx := Transaction{Tags: []string{"b", "a", "b"}}
	tx.Normalize()
	if !tx.HasTag("a") || !tx.HasTag("b") || tx.HasTag("c") || tx.Priority != PriorityMedium {
		t.Fatalf("normalize: %+v", tx)
	}
}

func TestAccountValidate(t *testing.T) {
	ids := SequentialIDs("acc")
	if err := NewAccount(ids, "Checking", Checking, NewMoney(1000), "USD").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	cases := []Account{
		NewAccount(ids, "", Checking, Zero, "USD"),
		NewAccount(ids, "A", "wallet", Zero, "USD"),
		NewAccount(ids, "A", Savings, Zero, "ZZZ"),
	}
	for i, a := range cases {
		if err := a.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	ids := SequentialIDs("b")
	start := NewDate(2025, 1, 1)
	if err := NewBudget(ids, "food", NewMoney(300), Monthly, start).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := NewBudget(ids, "food", Zero, Weekly, start).Validate(); err != nil {
		t.Fatalf("zero limit is allowed, got %v", err)
	}
	bads := []Budget{
		NewBudget(ids, "food", MustMoney("-1"), Monthly, start),
		NewBudget(ids, "", NewMoney(1), Monthly, start),
		NewBudget(ids, "food", NewMoney(1), Daily, start),
		NewBudget(ids, "food", NewMoney(1), Monthly, time.Time{}),
	}
	for i, b := range bads {
		if err := b.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestSavingsGoalCurrentAmountIsDerived(t *testing.T) {
	g := NewSavingsGoal(SequentialIDs("g"), "Vacation", NewMoney(2000), NewMoney(500))
	if got := g.CurrentAmount(); !got.Equal(NewMoney(500)) {
		t.Fatalf("current = %s", got)
	}
	g.Contributions = append(g.Contributions, Contribution{Amount: NewMoney(100), At: NewDate(2025, 2, 1)})
	if got := g.CurrentAmount(); !got.Equal(NewMoney(600)) {
		t.Fatalf("current = %s, want 600", got)
	}
	p := g.Progress()
	if p.Progress != 0.3 || p.Reached || !p.Remaining.Equal(NewMoney(1400)) {
		t.Fatalf("progress = %+v", p)
	}

	g.Contributions = append(g.Contributions, Contribution{Amount: NewMoney(2000), At: NewDate(2025, 3, 1)})
	p = g.Progress()
	if p.Progress != 1 || !p.Reached || !p.Remaining.IsZero() {
		t.Fatalf("progress over target = %+v", p)
	}

	g.Contributions = append(g.Contributions, Contribution{Amount: MustMoney("-5"), At: NewDate(2025, 3, 1)})
	if err := g.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative contribution accepted: %v", err)
	}
}

func TestBillOverdue(t *testing.T) {
	b := NewBill(SequentialIDs("bill"), "Rent", NewMoney(1200), NewDate(2025, 3, 1), Monthly)
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if b.IsOverdue(NewDate(2025, 2, 28)) || !b.IsOverdue(NewDate(2025, 3, 2)) {
		t.Fatalf("overdue computation wrong")
	}
	b.Paid = true
	if b.IsOverdue(NewDate(2025, 3, 2)) {
		t.Fatalf("paid bill reported overdue")
	}
	b.Every = "fortnightly"
	if err := b.Validate(); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNoteValidate(t *testing.T) {
	now := NewDate(2025, 1, 1)
	n := NewNote(SequentialIDs("n"), "Groceries", "milk", now)
	n.Attachments = []NoteAttachment{{ID: "a1", Kind: AttachmentImage, Filename: "r.jpg", BlobRef: "blob"}}
	if err := n.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if _, ok := n.Attachment("a1"); !ok {
		t.Fatalf("attachment lookup failed")
	}

	dup := n.Clone()
	dup.Attachments = append(dup.Attachments, dup.Attachments[0])
	if err := dup.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate attachment accepted: %v", err)
	}
	if n.Attachments[0].ID != "a1" || len(n.Attachments) != 1 {
		t.Fatalf("clone shares attachments")
	}

	kind := n.Clone()
	kind.Attachments[0].Kind = "video"
	if err := kind.Validate(); !errors.Is(err, ErrInvalidAttachment) {
		t.Fatalf("expected ErrInvalidAttachment, got %v", err)
	}
}
