package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/keyring"
	"github.com/pinvault/pinvault/internal/session"
)

// Unlock verifies the PIN for a profile. With remember set, the PIN is
// stored in the OS keyring so later commands skip the prompt.
func Unlock(ctx context.Context, profileID string, remember bool) {
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
	if err := svc.Login(ctx, profileID, pin, remember); err != nil {
		HandleError(err)
	}

	if remember {
		vaultID, err := st.GetVaultID()
		if err != nil {
			HandleError(err)
		}
		if err := keyring.SavePIN(vaultID, profileID, string(pin)); err != nil {
			HandleError(fmt.Errorf("failed to store PIN in keyring: %w", err))
		}
		fmt.Printf("Profile '%s' unlocked, PIN saved to OS keyring\n", profileID)
		return
	}
	fmt.Printf("Profile '%s' unlocked\n", profileID)
}
