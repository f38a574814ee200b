package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"fintrack/internal/core"
)

func TestJSONRoundTrip(t *testing.T) {
	ids := core.SequentialIDs("tx")
	day := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	end := day.AddDate(1, 0, 0)

	tx := core.NewTransaction(ids, core.MustMoney("25.99"), core.Expense, "Starbucks", day, "acc-1")
	tx.CategoryID = "cat-1"
	tx.Tags = []string{"coffee", "work"}
	tx.Location = &core.Location{Latitude: 45.5, Longitude: -73.6}
	tx.Receipt = &core.AttachmentRef{BlobRef: "blob-1", Filename: "r.jpg", MediaType: "image/jpeg", Size: 3}
	tx.Recurrence = &core.Recurrence{Every: core.Monthly, EndDate: &end, LastRun: day}
	in := []core.Transaction{tx, core.NewTransaction(ids, core.NewMoney(100), core.Income, "Payroll", day, "acc-1")}

	var c Codec[core.Transaction] = JSON[core.Transaction]{}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, _ := c.Encode(out)
	if string(again) != string(b) {
		t.Fatalf("encoding is not deterministic:\n%s\n%s", b, again)
	}
}

func TestJSONEmpty(t *testing.T) {
	c := JSON[core.Account]{}
	for _, in := range [][]byte{nil, {}, []byte("  \n")} {
		got, err := c.Decode(in)
		if err != nil || got == nil || len(got) != 0 {
			t.Fatalf("Decode(%q) = %v, %v", in, got, err)
		}
	}
	b, err := c.Encode(nil)
	if err != nil || string(b) != `{"version":1,"items":[]}` {
		t.Fatalf("Encode(nil) = %s, %v", b, err)
	}
}

func TestJSONDecodeFailures(t *testing.T) {
	c := JSON[core.Account]{}
	cases := map[string]string{
		"garbage":         "not json",
		"truncated":       `{"version":1,"items":[{"id":"a"`,
		"wrong version":   `{"version":2,"items":[]}`,
		"missing version": `{"items":[]}`,
		"unknown field":   `{"version":1,"items":[],"extra":true}`,
		"trailing data":   `{"version":1,"items":[]} {}`,
		"wrong item type": `{"version":1,"items":[42]}`,
	}
	for name, in := range cases {
		if _, err := c.Decode([]byte(in)); !errors.Is(err, core.ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", name, err)
		}
	}
}
