package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket      = []byte("config")      // Schema version, timestamps, vault ID - unencrypted
	CredentialsBucket = []byte("credentials") // Per-profile credential records (salt, iterations, verification hash)
	RecordsBucket     = []byte("records")     // Nested bucket per collection, record id -> JSON record
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCollectionRequired = errors.New("collection name required")
)

// InsertHook runs on every record before it is committed by BulkInsert.
// Returning an error aborts the surrounding transaction. Hooks receive a
// copy of the record and return the record to persist.
type InsertHook func(collection string, rec Record) (Record, error)

// TimestampHook stamps createdAt/updatedAt on inserted records that do
// not already carry them, using the supplied clock.
func TimestampHook(now func() time.Time) InsertHook {
	return func(collection string, rec Record) (Record, error) {
		ts := now().UTC().Format(time.RFC3339Nano)
		if _, ok := rec[FieldCreatedAt]; !ok {
			rec[FieldCreatedAt] = ts
		}
		rec[FieldUpdatedAt] = ts
		return rec, nil
	}
}

// Store provides BBolt-based storage for the vault: per-profile
// credentials and the record collections the surrounding app owns.
type Store struct {
	db    *bolt.DB
	hooks []InsertHook
}

// Open opens or creates a vault database
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// OnInsert registers a pre-commit hook applied to every BulkInsert record.
// Hooks run in registration order.
func (s *Store) OnInsert(hook InsertHook) {
	s.hooks = append(s.hooks, hook)
}

// Initialize creates the bucket structure for a new vault
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, CredentialsBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		now := time.Now()
		created, _ := now.MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Store) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// PutCredential durably persists a profile's credential record. The bolt
// transaction has committed by the time this returns, so a failed login
// attempt recorded here survives a crash.
func (s *Store) PutCredential(cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		creds := tx.Bucket(CredentialsBucket)
		if creds == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		return creds.Put([]byte(cred.ProfileID), data)
	})
}

// GetCredential retrieves a profile's credential record
func (s *Store) GetCredential(profileID string) (*Credential, error) {
	var cred *Credential
	err := s.db.View(func(tx *bolt.Tx) error {
		creds := tx.Bucket(CredentialsBucket)
		if creds == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		data := creds.Get([]byte(profileID))
		if data == nil {
			return ErrCredentialNotFound
		}
		cred = &Credential{}
		return json.Unmarshal(data, cred)
	})
	return cred, err
}

// DeleteCredential removes a profile's credential record
func (s *Store) DeleteCredential(profileID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		creds := tx.Bucket(CredentialsBucket)
		if creds == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		return creds.Delete([]byte(profileID))
	})
}

// ListProfiles returns all profile IDs with a stored credential
func (s *Store) ListProfiles() ([]string, error) {
	var profiles []string
	err := s.db.View(func(tx *bolt.Tx) error {
		creds := tx.Bucket(CredentialsBucket)
		if creds == nil {
			return nil
		}
		return creds.ForEach(func(k, v []byte) error {
			profiles = append(profiles, string(k))
			return nil
		})
	})
	sort.Strings(profiles)
	return profiles, err
}

// Tx is the transactional scope handed to Transact callbacks. All inserts
// performed through it commit or roll back as one unit.
type Tx struct {
	btx   *bolt.Tx
	hooks []InsertHook
}

// Transact runs fn inside a single writable transaction. Any error from
// fn rolls back everything fn inserted.
func (s *Store) Transact(fn func(*Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{btx: btx, hooks: s.hooks})
	})
}

// BulkInsert appends records to a collection. Each record must carry a
// non-empty id; existing records are never overwritten - inserting an id
// that already exists is an error, keeping imports strictly additive.
func (t *Tx) BulkInsert(collection string, records []Record) error {
	if collection == "" {
		return ErrCollectionRequired
	}

	root := t.btx.Bucket(RecordsBucket)
	if root == nil {
		return fmt.Errorf("records bucket not found")
	}
	bucket, err := root.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	for _, rec := range records {
		rec = rec.Clone()
		for _, hook := range t.hooks {
			rec, err = hook(collection, rec)
			if err != nil {
				return fmt.Errorf("insert hook failed for %s: %w", collection, err)
			}
		}

		id := rec.ID()
		if id == "" {
			return fmt.Errorf("record in %s has no id", collection)
		}
		if bucket.Get([]byte(id)) != nil {
			return fmt.Errorf("record %s already exists in %s", id, collection)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", id, err)
		}
		if err := bucket.Put([]byte(id), data); err != nil {
			return fmt.Errorf("failed to store record %s: %w", id, err)
		}
	}

	return nil
}

// BulkInsert appends records to a collection in its own transaction
func (s *Store) BulkInsert(collection string, records []Record) error {
	return s.Transact(func(tx *Tx) error {
		return tx.BulkInsert(collection, records)
	})
}

// Collections returns the names of all record collections, sorted
func (s *Store) Collections() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(RecordsBucket)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(name []byte) error {
			names = append(names, string(name))
			return nil
		})
	})
	sort.Strings(names)
	return names, err
}

// Records returns all records in a collection, ordered by id
func (s *Store) Records(collection string) ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(RecordsBucket)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record %s: %w", k, err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// CountRecords returns the number of records in a collection
func (s *Store) CountRecords(collection string) (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(RecordsBucket)
		if root == nil {
			return nil
		}
		bucket := root.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count, err
}

// UpdateModified updates the last modified timestamp
func (s *Store) UpdateModified() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		now := time.Now()
		modified, _ := now.MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// GetModified retrieves the last modified timestamp
func (s *Store) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Store) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Store) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate vault ID: %w", err)
	}
	vaultID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after large imports or profile removal.
func (s *Store) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return copyBucket(srcBucket, dstBucket)
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

// copyBucket copies keys and nested buckets recursively
func copyBucket(src, dst *bolt.Bucket) error {
	return src.ForEach(func(k, v []byte) error {
		if v == nil {
			srcNested := src.Bucket(k)
			dstNested, err := dst.CreateBucketIfNotExists(k)
			if err != nil {
				return err
			}
			return copyBucket(srcNested, dstNested)
		}
		return dst.Put(k, v)
	})
}
