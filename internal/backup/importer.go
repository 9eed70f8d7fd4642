package backup

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pinvault/pinvault/internal/store"
)

// Report summarizes an import: how many records were written, how many
// were skipped as empty, and the error text if the import was aborted.
// After an abort the counts still reflect the attempted, rolled-back
// records, so callers can tell how much work the failed import covered.
type Report struct {
	ImportedCount uint32 `json:"importedCount"`
	SkippedCount  uint32 `json:"skippedCount"`
	Err           string `json:"error,omitempty"`
}

// Importer merges backup payloads into a vault. Imports are strictly
// additive: every record gets a fresh id and is re-attributed to the
// target profile, and existing records are never touched.
type Importer struct {
	store *store.Store
	newID func() string
}

// NewImporter creates an importer writing into the given store
func NewImporter(st *store.Store) *Importer {
	return &Importer{store: st, newID: uuid.NewString}
}

// ImportInto merges the payload's collections into the vault under the
// target profile. All collections are written inside one transaction, so
// a failure anywhere leaves the vault exactly as it was.
func (im *Importer) ImportInto(payload *Payload, targetProfileID string) (*Report, error) {
	report := &Report{}

	collections := make([]string, 0, len(payload.Collections))
	for name := range payload.Collections {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	err := im.store.Transact(func(tx *store.Tx) error {
		for _, collection := range collections {
			incoming := payload.Collections[collection]
			prepared := make([]store.Record, 0, len(incoming))

			for _, rec := range incoming {
				if len(rec) == 0 {
					report.SkippedCount++
					continue
				}
				merged := rec.Clone()
				merged[store.FieldID] = im.newID()
				merged[store.FieldProfileID] = targetProfileID
				prepared = append(prepared, merged)
			}
			if len(prepared) == 0 {
				continue
			}
			if err := tx.BulkInsert(collection, prepared); err != nil {
				return fmt.Errorf("failed to import collection %s: %w", collection, err)
			}
			report.ImportedCount += uint32(len(prepared))
		}
		return nil
	})
	if err != nil {
		report.Err = err.Error()
		log.Error().Err(err).Str("profile", targetProfileID).
			Uint32("rolledBack", report.ImportedCount).
			Msg("Import aborted, vault unchanged")
		return report, err
	}

	log.Info().Str("profile", targetProfileID).
		Uint32("imported", report.ImportedCount).
		Uint32("skipped", report.SkippedCount).
		Msg("Backup imported")
	return report, nil
}
