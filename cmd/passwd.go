package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/keyring"
	"github.com/pinvault/pinvault/internal/session"
)

// Passwd changes a profile's PIN. The old PIN is verified first; the new
// credentials get a fresh salt. A remembered keyring PIN is updated too.
func Passwd(ctx context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	cfg, err := LoadConfig()
	if err != nil {
		HandleError(err)
	}

	oldPin, err := ReadPIN("Enter current PIN: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(oldPin)

	newPin, err := ReadPINConfirm()
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(newPin)

	svc := auth.NewService(st, session.NewStore(),
		auth.WithIterations(cfg.KDFIterations),
		auth.WithPolicy(cfg.Policy()))
	if err := svc.ChangePin(ctx, profileID, oldPin, newPin); err != nil {
		HandleError(err)
	}

	if vaultID, err := st.GetVaultID(); err == nil && keyring.HasPIN(vaultID, profileID) {
		if err := keyring.SavePIN(vaultID, profileID, string(newPin)); err != nil {
			fmt.Printf("Warning: keyring entry not updated: %s\n", err)
		}
	}

	if err := st.Compact(); err != nil {
		fmt.Printf("Warning: failed to compact vault: %s\n", err)
	}
	fmt.Printf("PIN changed for profile '%s'\n", profileID)
}
