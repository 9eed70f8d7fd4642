package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pinvault/pinvault/internal/keyring"
)

// Status shows vault state without requiring a PIN: profiles, lockout
// state, collections, and record counts.
func Status(_ context.Context) {
	st, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer st.Close()

	initialized, err := st.IsInitialized()
	if err != nil {
		HandleError(err)
	}
	if !initialized {
		fmt.Println("Vault not initialized. Run 'pinvault init' first.")
		return
	}

	path, _ := VaultPath()
	fmt.Printf("Vault: %s\n", path)
	if vaultID, err := st.GetVaultID(); err == nil {
		fmt.Printf("ID:    %s\n", vaultID)
	}
	if modified, err := st.GetModified(); err == nil {
		fmt.Printf("Modified: %s\n", modified.Format(time.RFC3339))
	}

	profiles, err := st.ListProfiles()
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("\nProfiles (%d):\n", len(profiles))
	for _, profileID := range profiles {
		cred, err := st.GetCredential(profileID)
		if err != nil {
			continue
		}
		state := "ok"
		if cred.LockoutUntil != nil && time.Now().Before(*cred.LockoutUntil) {
			state = fmt.Sprintf("locked out for %s", time.Until(*cred.LockoutUntil).Round(time.Second))
		} else if cred.FailedAttempts > 0 {
			state = fmt.Sprintf("%d failed attempts", cred.FailedAttempts)
		}
		remembered := ""
		if vaultID, err := st.GetVaultID(); err == nil && keyring.HasPIN(vaultID, profileID) {
			remembered = ", PIN in keyring"
		}
		fmt.Printf("  %s (%s%s)\n", profileID, state, remembered)
	}

	collections, err := st.Collections()
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("\nCollections (%d):\n", len(collections))
	for _, collection := range collections {
		count, _ := st.CountRecords(collection)
		fmt.Printf("  %s: %d records\n", collection, count)
	}
}
