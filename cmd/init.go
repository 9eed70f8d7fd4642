package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/session"
)

// Init creates the vault database and sets up a profile's PIN
func Init(ctx context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		HandleError(err)
	}
	vaultID, err := st.GetOrCreateVaultID()
	if err != nil {
		HandleError(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		HandleError(err)
	}

	pin := GetPINFromEnv()
	if pin == nil {
		pin, err = ReadPINConfirm()
		if err != nil {
			HandleError(err)
		}
	}
	defer crypto.ClearBytes(pin)

	svc := auth.NewService(st, session.NewStore(),
		auth.WithIterations(cfg.KDFIterations),
		auth.WithPolicy(cfg.Policy()))
	if err := svc.CreateProfile(ctx, profileID, pin); err != nil {
		HandleError(err)
	}

	path, _ := VaultPath()
	fmt.Printf("Vault %s initialized at %s\n", vaultID, path)
	fmt.Printf("Profile '%s' created. Your PIN is not stored anywhere.\n", profileID)
}
