package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/backup"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/session"
)

// Import merges an encrypted backup file into the vault under profileID.
// Existing records are never modified; imported records get fresh ids.
func Import(ctx context.Context, profileID, inPath string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	cfg, err := LoadConfig()
	if err != nil {
		HandleError(err)
	}

	pin := GetPINOrExit(st, profileID, "Enter PIN: ")
	defer crypto.ClearBytes(pin)

	svc := auth.NewService(st, session.NewStore(), auth.WithPolicy(cfg.Policy()))
	if err := svc.VerifyPin(ctx, profileID, pin); err != nil {
		HandleError(err)
	}

	env, err := backup.ReadEnvelope(inPath)
	if err != nil {
		HandleError(err)
	}

	password, err := ReadPIN("Enter backup password: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	payload, err := backup.Import(env, password)
	if err != nil {
		HandleError(err)
	}

	report, err := backup.NewImporter(st).ImportInto(payload, profileID)
	if err != nil {
		HandleError(err)
	}
	if err := st.UpdateModified(); err != nil {
		fmt.Printf("Warning: failed to update modified time: %s\n", err)
	}
	fmt.Printf("Imported %d records (%d skipped) from %s\n",
		report.ImportedCount, report.SkippedCount, inPath)
}
