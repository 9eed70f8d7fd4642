package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/keyring"
	"github.com/pinvault/pinvault/internal/session"
)

// KeyringSave verifies the PIN and stores it in the OS keyring
func KeyringSave(ctx context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	cfg, err := LoadConfig()
	if err != nil {
		HandleError(err)
	}

	pin, err := ReadPIN("Enter PIN: ")
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(pin)

	svc := auth.NewService(st, session.NewStore(), auth.WithPolicy(cfg.Policy()))
	if err := svc.VerifyPin(ctx, profileID, pin); err != nil {
		HandleError(err)
	}

	vaultID, err := st.GetOrCreateVaultID()
	if err != nil {
		HandleError(err)
	}
	if err := keyring.SavePIN(vaultID, profileID, string(pin)); err != nil {
		HandleError(fmt.Errorf("failed to save to keyring: %w", err))
	}
	fmt.Println("PIN saved to keyring")
}

// KeyringDelete removes the PIN from the OS keyring
func KeyringDelete(_ context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	vaultID, err := st.GetVaultID()
	if err != nil {
		fmt.Println("No PIN stored in keyring")
		return
	}
	if err := keyring.DeletePIN(vaultID, profileID); err != nil {
		fmt.Println("No PIN stored in keyring")
		return
	}
	fmt.Println("PIN removed from keyring")
}

// KeyringStatus reports whether a PIN is stored in the keyring
func KeyringStatus(_ context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	vaultID, err := st.GetVaultID()
	if err != nil {
		fmt.Println("PIN: not stored")
		return
	}
	if keyring.HasPIN(vaultID, profileID) {
		fmt.Println("PIN: stored in keyring")
	} else {
		fmt.Println("PIN: not stored")
	}
}
