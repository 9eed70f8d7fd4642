package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pinvault/pinvault/internal/backup"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/store"
)

// BackupDiff decrypts a backup file and shows what importing it would
// add relative to the current vault contents.
func BackupDiff(_ context.Context, inPath string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	env, err := backup.ReadEnvelope(inPath)
	if err != nil {
		HandleError(err)
	}

	password, err := ReadPIN("Enter backup password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	incoming, err := backup.Import(env, password)
	if err != nil {
		HandleError(err)
	}

	current, err := currentPayload(st)
	if err != nil {
		HandleError(err)
	}

	diff, err := backup.DiffPayloads(current, incoming)
	if err != nil {
		HandleError(err)
	}
	fmt.Print(diff)
}

func currentPayload(st *store.Store) (*backup.Payload, error) {
	collections, err := st.Collections()
	if err != nil {
		return nil, err
	}
	payload := &backup.Payload{
		SchemaVersion: backup.PayloadSchemaVersion,
		ExportedAt:    time.Now().UTC(),
		Collections:   make(map[string][]store.Record, len(collections)),
	}
	for _, collection := range collections {
		records, err := st.Records(collection)
		if err != nil {
			return nil, err
		}
		payload.Collections[collection] = records
	}
	return payload, nil
}
