package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/pinvault/pinvault/internal/auth"
	"github.com/pinvault/pinvault/internal/backup"
	"github.com/pinvault/pinvault/internal/config"
	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/keyring"
	"github.com/pinvault/pinvault/internal/store"
)

// DefaultProfile is used when no --profile flag is given
const DefaultProfile = "default"

// VaultPath resolves the vault location: $PINVAULT_PATH if set, otherwise
// ~/.pinvault/vault.db.
func VaultPath() (string, error) {
	if path := os.Getenv("PINVAULT_PATH"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".pinvault", "vault.db"), nil
}

// ConfigPath resolves the config file next to the vault
func ConfigPath() (string, error) {
	path, err := VaultPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "config.yaml"), nil
}

// OpenVault opens the vault database, creating parent directories
func OpenVault() (*store.Store, error) {
	path, err := VaultPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return store.Open(path)
}

// LoadConfig loads settings from the config file next to the vault
func LoadConfig() (*config.Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// ReadPIN reads a PIN from the terminal without echoing
func ReadPIN(prompt string) ([]byte, error) {
	fmt.Print(prompt)

	pin, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()

	if err != nil {
		return nil, fmt.Errorf("failed to read PIN: %w", err)
	}
	return pin, nil
}

// ReadPINConfirm reads a PIN twice and ensures both entries match
func ReadPINConfirm() ([]byte, error) {
	pin1, err := ReadPIN("Enter PIN: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pin1)

	pin2, err := ReadPIN("Confirm PIN: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(pin2)

	if !crypto.ConstantTimeCompare(pin1, pin2) {
		return nil, fmt.Errorf("PINs do not match")
	}

	result := make([]byte, len(pin1))
	copy(result, pin1)
	return result, nil
}

// GetPINFromEnv reads the PIN from the PINVAULT_PIN environment variable
func GetPINFromEnv() []byte {
	pin := os.Getenv("PINVAULT_PIN")
	if pin == "" {
		return nil
	}
	result := make([]byte, len(pin))
	copy(result, []byte(pin))
	return result
}

// GetPIN retrieves the PIN: environment first, then the OS keyring, then
// an interactive prompt. The caller must ClearBytes the result.
func GetPIN(st *store.Store, profileID, prompt string) ([]byte, error) {
	if pin := GetPINFromEnv(); pin != nil {
		return pin, nil
	}

	if vaultID, err := st.GetVaultID(); err == nil {
		if pin, err := keyring.GetPIN(vaultID, profileID); err == nil {
			return []byte(pin), nil
		}
	}

	return ReadPIN(prompt)
}

// GetPINOrExit is like GetPIN but exits on error
func GetPINOrExit(st *store.Store, profileID, prompt string) []byte {
	pin, err := GetPIN(st, profileID, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return pin
}

// HandleError prints a friendly message for known errors and exits
func HandleError(err error) {
	var locked *auth.LockedOutError
	switch {
	case errors.As(err, &locked):
		fmt.Fprintf(os.Stderr, "Error: %s\n", locked)
	case errors.Is(err, auth.ErrInvalidPin):
		fmt.Fprintf(os.Stderr, "Error: invalid PIN\n")
	case errors.Is(err, auth.ErrProfileNotFound):
		fmt.Fprintf(os.Stderr, "Error: profile not found\n")
		fmt.Fprintf(os.Stderr, "Run 'pinvault init' first\n")
	case errors.Is(err, auth.ErrProfileExists):
		fmt.Fprintf(os.Stderr, "Error: profile already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'pinvault passwd' to change its PIN\n")
	case errors.Is(err, backup.ErrUnsupportedVersion):
		fmt.Fprintf(os.Stderr, "Error: backup was created by a newer version\n")
	case errors.Is(err, backup.ErrDecryptionFailed):
		fmt.Fprintf(os.Stderr, "Error: wrong backup password or corrupted file\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
