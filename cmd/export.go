package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/backup"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/session"
)

// Export writes an encrypted backup of the whole vault to outPath. The
// profile's PIN gates the operation; a separate backup password encrypts
// the file so it can be restored on another machine.
func Export(ctx context.Context, profileID, outPath string) {
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

	password, err := readBackupPassword()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	env, err := backup.ExportVault(st, profileID, password, cfg.KDFIterations)
	if err != nil {
		HandleError(err)
	}
	if err := backup.WriteEnvelope(env, outPath); err != nil {
		HandleError(err)
	}
	fmt.Printf("Backup written to %s\n", outPath)
}

// readBackupPassword reads the backup password twice and ensures both
// entries match. The backup password is independent of any profile PIN.
func readBackupPassword() ([]byte, error) {
	pw1, err := ReadPIN("Enter backup password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pw1)

	pw2, err := ReadPIN("Confirm backup password: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pw2)

	if !crypto.ConstantTimeCompare(pw1, pw2) {
		return nil, fmt.Errorf("passwords do not match")
	}

	result := make([]byte, len(pw1))
	copy(result, pw1)
	return result, nil
}
