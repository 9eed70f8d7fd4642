package backup

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pinvault/pinvault/internal/store"
)

// ExportVault assembles a payload from every collection in the store and
// encrypts it under the given password.
func ExportVault(st *store.Store, profileID string, password []byte, iterations uint32) (*Envelope, error) {
	collections, err := st.Collections()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	payload := &Payload{
		SchemaVersion:   PayloadSchemaVersion,
		ExportedAt:      time.Now().UTC(),
		SourceProfileID: profileID,
		Collections:     make(map[string][]store.Record, len(collections)),
	}

	total := 0
	for _, collection := range collections {
		records, err := st.Records(collection)
		if err != nil {
			return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
		}
		payload.Collections[collection] = records
		total += len(records)
	}

	env, err := Export(payload, password, iterations)
	if err != nil {
		return nil, err
	}

	log.Info().Str("profile", profileID).Int("collections", len(collections)).Int("records", total).Msg("Vault exported")
	return env, nil
}
