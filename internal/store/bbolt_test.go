package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.pinvault")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	db := openTestStore(t)

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	db := openTestStore(t)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(5 * time.Minute)
	cred := Credential{
		ProfileID:        "default",
		Salt:             []byte("test-salt-32-bytes-long-exactly!"),
		Iterations:       100000,
		VerificationHash: []byte("hash-bytes"),
		FailedAttempts:   3,
		LockoutUntil:     &until,
		LastActivityAt:   now,
		CreatedAt:        now,
	}

	if err := db.PutCredential(cred); err != nil {
		t.Fatalf("Failed to put credential: %v", err)
	}

	got, err := db.GetCredential("default")
	if err != nil {
		t.Fatalf("Failed to get credential: %v", err)
	}

	if got.ProfileID != "default" {
		t.Errorf("ProfileID mismatch: got %s", got.ProfileID)
	}
	if string(got.Salt) != string(cred.Salt) {
		t.Errorf("Salt mismatch: got %v", got.Salt)
	}
	if got.Iterations != 100000 {
		t.Errorf("Iterations mismatch: got %d", got.Iterations)
	}
	if got.FailedAttempts != 3 {
		t.Errorf("FailedAttempts mismatch: got %d", got.FailedAttempts)
	}
	if got.LockoutUntil == nil || !got.LockoutUntil.Equal(until) {
		t.Errorf("LockoutUntil mismatch: got %v", got.LockoutUntil)
	}
}

func TestGetCredentialNotFound(t *testing.T) {
	db := openTestStore(t)

	if _, err := db.GetCredential("ghost"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("Expected ErrCredentialNotFound, got %v", err)
	}
}

func TestListProfiles(t *testing.T) {
	db := openTestStore(t)

	for _, id := range []string{"bob", "alice"} {
		if err := db.PutCredential(Credential{ProfileID: id}); err != nil {
			t.Fatalf("Failed to put credential: %v", err)
		}
	}

	profiles, err := db.ListProfiles()
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	if len(profiles) != 2 || profiles[0] != "alice" || profiles[1] != "bob" {
		t.Errorf("Expected sorted [alice bob], got %v", profiles)
	}

	if err := db.DeleteCredential("alice"); err != nil {
		t.Fatalf("Failed to delete credential: %v", err)
	}
	profiles, _ = db.ListProfiles()
	if len(profiles) != 1 || profiles[0] != "bob" {
		t.Errorf("Expected [bob], got %v", profiles)
	}
}

func TestBulkInsertAndRead(t *testing.T) {
	db := openTestStore(t)

	records := []Record{
		{"id": "a", "profileId": "p1", "amount": 42.5},
		{"id": "b", "profileId": "p1", "amount": 7.0},
	}
	if err := db.BulkInsert("transactions", records); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	got, err := db.Records("transactions")
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].ID() != "a" || got[1].ID() != "b" {
		t.Errorf("Unexpected record order: %v", got)
	}

	count, err := db.CountRecords("transactions")
	if err != nil {
		t.Fatalf("CountRecords failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	collections, err := db.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(collections) != 1 || collections[0] != "transactions" {
		t.Errorf("Expected [transactions], got %v", collections)
	}
}

func TestBulkInsertNeverOverwrites(t *testing.T) {
	db := openTestStore(t)

	if err := db.BulkInsert("accounts", []Record{{"id": "a", "name": "original"}}); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	err := db.BulkInsert("accounts", []Record{{"id": "a", "name": "clobber"}})
	if err == nil {
		t.Fatal("Expected error inserting duplicate id")
	}

	got, _ := db.Records("accounts")
	name, _ := got[0]["name"].(string)
	if name != "original" {
		t.Errorf("Existing record was overwritten: %v", got[0])
	}
}

func TestBulkInsertRequiresID(t *testing.T) {
	db := openTestStore(t)

	if err := db.BulkInsert("accounts", []Record{{"name": "no id"}}); err == nil {
		t.Error("Expected error for record without id")
	}
	if err := db.BulkInsert("", []Record{{"id": "a"}}); !errors.Is(err, ErrCollectionRequired) {
		t.Errorf("Expected ErrCollectionRequired, got %v", err)
	}
}

func TestTransactRollsBackOnError(t *testing.T) {
	db := openTestStore(t)

	err := db.Transact(func(tx *Tx) error {
		if err := tx.BulkInsert("transactions", []Record{{"id": "t1"}}); err != nil {
			return err
		}
		if err := tx.BulkInsert("accounts", []Record{{"id": "a1"}}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("Expected transaction error")
	}

	for _, collection := range []string{"transactions", "accounts"} {
		count, _ := db.CountRecords(collection)
		if count != 0 {
			t.Errorf("Expected %s rolled back, found %d records", collection, count)
		}
	}
}

func TestInsertHooks(t *testing.T) {
	db := openTestStore(t)

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	db.OnInsert(TimestampHook(func() time.Time { return fixed }))

	if err := db.BulkInsert("documents", []Record{{"id": "d1"}}); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}

	got, _ := db.Records("documents")
	want := fixed.Format(time.RFC3339Nano)
	if got[0][FieldCreatedAt] != want {
		t.Errorf("createdAt not stamped: got %v, want %v", got[0][FieldCreatedAt], want)
	}
	if got[0][FieldUpdatedAt] != want {
		t.Errorf("updatedAt not stamped: got %v", got[0][FieldUpdatedAt])
	}
}

func TestInsertHookErrorAbortsTransaction(t *testing.T) {
	db := openTestStore(t)

	db.OnInsert(func(collection string, rec Record) (Record, error) {
		if collection == "poison" {
			return nil, errors.New("rejected by hook")
		}
		return rec, nil
	})

	err := db.Transact(func(tx *Tx) error {
		if err := tx.BulkInsert("transactions", []Record{{"id": "t1"}}); err != nil {
			return err
		}
		return tx.BulkInsert("poison", []Record{{"id": "p1"}})
	})
	if err == nil {
		t.Fatal("Expected hook error to surface")
	}

	count, _ := db.CountRecords("transactions")
	if count != 0 {
		t.Errorf("Expected rollback of sibling collection, found %d records", count)
	}
}

func TestPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.pinvault")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	if err := db.PutCredential(Credential{ProfileID: "p1", Salt: []byte("salt")}); err != nil {
		t.Fatalf("Failed to put credential: %v", err)
	}
	if err := db.BulkInsert("transactions", []Record{{"id": "t1"}}); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	if _, err := db2.GetCredential("p1"); err != nil {
		t.Errorf("Credential not persisted: %v", err)
	}
	count, _ := db2.CountRecords("transactions")
	if count != 1 {
		t.Errorf("Records not persisted: got %d", count)
	}
}

func TestVaultID(t *testing.T) {
	db := openTestStore(t)

	if _, err := db.GetVaultID(); err == nil {
		t.Error("Expected error before vault ID exists")
	}

	id1, err := db.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("GetOrCreateVaultID failed: %v", err)
	}
	id2, err := db.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("GetOrCreateVaultID failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("Vault ID should be stable: %s != %s", id1, id2)
	}
}

func TestCompact(t *testing.T) {
	db := openTestStore(t)

	if err := db.BulkInsert("transactions", []Record{{"id": "t1", "amount": 1.0}}); err != nil {
		t.Fatalf("BulkInsert failed: %v", err)
	}
	if err := db.PutCredential(Credential{ProfileID: "p1"}); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	// Data survives compaction, including nested collection buckets
	count, err := db.CountRecords("transactions")
	if err != nil || count != 1 {
		t.Errorf("Expected 1 record after compact, got %d (err %v)", count, err)
	}
	if _, err := db.GetCredential("p1"); err != nil {
		t.Errorf("Credential lost in compaction: %v", err)
	}
}
