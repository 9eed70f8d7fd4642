package cmd

import (
	"context"
	"fmt"

	"github.com/pinvault/pinvault/internal/keyring"
)

// Lock forgets a profile's remembered PIN: the keyring entry is removed
// and the next command will prompt again.
func Lock(_ context.Context, profileID string) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	vaultID, err := st.GetVaultID()
	if err != nil {
		HandleError(err)
	}

	if !keyring.HasPIN(vaultID, profileID) {
		fmt.Printf("Profile '%s' has no remembered PIN\n", profileID)
		return
	}
	if err := keyring.DeletePIN(vaultID, profileID); err != nil {
		HandleError(fmt.Errorf("failed to remove PIN from keyring: %w", err))
	}
	fmt.Printf("Profile '%s' locked, PIN removed from OS keyring\n", profileID)
}
