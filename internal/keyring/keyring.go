package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "pinvault"

// account keys PINs by vault and profile so vaults on the same machine
// never collide.
func account(vaultID, profileID string) string {
	return vaultID + "/" + profileID
}

// SavePIN stores a PIN in the OS keyring
func SavePIN(vaultID, profileID string, pin string) error {
	return keyring.Set(serviceName, account(vaultID, profileID), pin)
}

// GetPIN retrieves a PIN from the OS keyring
func GetPIN(vaultID, profileID string) (string, error) {
	return keyring.Get(serviceName, account(vaultID, profileID))
}

// DeletePIN removes a PIN from the OS keyring
func DeletePIN(vaultID, profileID string) error {
	return keyring.Delete(serviceName, account(vaultID, profileID))
}

// HasPIN checks if a PIN is stored in the keyring
func HasPIN(vaultID, profileID string) bool {
	_, err := keyring.Get(serviceName, account(vaultID, profileID))
	return err == nil
}
