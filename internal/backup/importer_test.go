package backup

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pinvault/pinvault/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.pinvault"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

// sequentialIDs replaces uuid generation with predictable ids for tests
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
}

func TestImportMergesAdditively(t *testing.T) {
	db := openTestStore(t)

	existing := []store.Record{
		{"id": "t-local", "profileId": "P2", "amount": 1.0},
	}
	if err := db.BulkInsert("transactions", existing); err != nil {
		t.Fatalf("Seeding failed: %v", err)
	}

	im := NewImporter(db)
	im.newID = sequentialIDs()

	payload := &Payload{
		SourceProfileID: "P1",
		Collections: map[string][]store.Record{
			"transactions": {
				{"id": "t1", "profileId": "P1", "amount": 10.0},
				{"id": "t2", "profileId": "P1", "amount": 20.0},
				{"id": "t3", "profileId": "P1", "amount": 30.0},
			},
			"accounts": {
				{"id": "a1", "profileId": "P1", "name": "checking"},
				{"id": "a2", "profileId": "P1", "name": "savings"},
			},
		},
	}

	report, err := im.ImportInto(payload, "P2")
	if err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}
	if report.ImportedCount != 5 {
		t.Errorf("Expected 5 imported, got %d", report.ImportedCount)
	}
	if report.SkippedCount != 0 {
		t.Errorf("Expected 0 skipped, got %d", report.SkippedCount)
	}

	// Pre-existing record untouched, imports re-attributed with fresh ids
	transactions, _ := db.Records("transactions")
	if len(transactions) != 4 {
		t.Fatalf("Expected 4 transactions, got %d", len(transactions))
	}
	for _, rec := range transactions {
		if rec.ProfileID() != "P2" {
			t.Errorf("Record %s has profileId %s, want P2", rec.ID(), rec.ProfileID())
		}
		if rec.ID() == "t1" || rec.ID() == "t2" || rec.ID() == "t3" {
			t.Errorf("Imported record kept its original id: %s", rec.ID())
		}
	}

	accounts, _ := db.Records("accounts")
	if len(accounts) != 2 {
		t.Errorf("Expected 2 accounts, got %d", len(accounts))
	}
}

func TestImportSkipsEmptyRecords(t *testing.T) {
	db := openTestStore(t)
	im := NewImporter(db)

	payload := &Payload{
		Collections: map[string][]store.Record{
			"documents": {
				{"id": "d1", "title": "keep"},
				{},
			},
		},
	}
	report, err := im.ImportInto(payload, "P1")
	if err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}
	if report.ImportedCount != 1 || report.SkippedCount != 1 {
		t.Errorf("Expected 1 imported / 1 skipped, got %d / %d", report.ImportedCount, report.SkippedCount)
	}
}

func TestImportIsAtomic(t *testing.T) {
	db := openTestStore(t)

	// A hook that rejects one collection aborts the entire import
	db.OnInsert(func(collection string, rec store.Record) (store.Record, error) {
		if collection == "documents" {
			return nil, fmt.Errorf("disk full")
		}
		return rec, nil
	})

	im := NewImporter(db)
	payload := &Payload{
		Collections: map[string][]store.Record{
			"accounts":  {{"id": "a1"}, {"id": "a2"}},
			"documents": {{"id": "d1"}},
		},
	}

	report, err := im.ImportInto(payload, "P1")
	if err == nil {
		t.Fatal("Expected import to fail")
	}
	// The report keeps the attempted counts even though everything was
	// rolled back: accounts committed inside the transaction before the
	// documents failure aborted it.
	if report.ImportedCount != 2 {
		t.Errorf("Report should show 2 attempted records, got %d", report.ImportedCount)
	}
	if report.Err == "" {
		t.Error("Report should carry the error text")
	}

	count, _ := db.CountRecords("accounts")
	if count != 0 {
		t.Errorf("Sibling collection should be rolled back, found %d records", count)
	}
}

func TestImportGeneratesUniqueIDs(t *testing.T) {
	db := openTestStore(t)
	im := NewImporter(db)

	payload := &Payload{
		Collections: map[string][]store.Record{
			"transactions": {
				{"id": "same", "n": 1.0},
			},
		},
	}

	// Importing the same backup twice duplicates nothing by id collision
	if _, err := im.ImportInto(payload, "P1"); err != nil {
		t.Fatalf("First import failed: %v", err)
	}
	if _, err := im.ImportInto(payload, "P1"); err != nil {
		t.Fatalf("Second import failed: %v", err)
	}

	records, _ := db.Records("transactions")
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID() == records[1].ID() {
		t.Error("Imports must assign distinct fresh ids")
	}
}

func TestDiffPayloads(t *testing.T) {
	a := &Payload{Collections: map[string][]store.Record{
		"accounts": {{"id": "a1", "name": "checking"}},
	}}
	b := &Payload{Collections: map[string][]store.Record{
		"accounts": {
			{"id": "a1", "name": "checking"},
			{"id": "a2", "name": "savings"},
		},
	}}

	diff, err := DiffPayloads(a, b)
	if err != nil {
		t.Fatalf("DiffPayloads failed: %v", err)
	}
	if !strings.Contains(diff, "+ ") || !strings.Contains(diff, "savings") {
		t.Errorf("Diff should mark the added record:\n%s", diff)
	}
	if strings.Contains(diff, "- ") {
		t.Errorf("Nothing was removed, diff should have no deletions:\n%s", diff)
	}
}

func TestDiffPayloadsIdentical(t *testing.T) {
	p := testPayload()
	diff, err := DiffPayloads(p, p)
	if err != nil {
		t.Fatalf("DiffPayloads failed: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(diff), "\n") {
		if strings.HasPrefix(line, "+ ") || strings.HasPrefix(line, "- ") {
			t.Errorf("Identical payloads should diff clean, got line %q", line)
		}
	}
}
