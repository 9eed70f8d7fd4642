package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/store"
)

const (
	// EnvelopeVersion is the wire format version written to every export.
	// Import requires an exact match.
	EnvelopeVersion = 1

	// PayloadSchemaVersion tracks the shape of the decrypted payload
	PayloadSchemaVersion = 1
)

var (
	// ErrUnsupportedVersion is returned before any key derivation when the
	// envelope version does not match EnvelopeVersion exactly.
	ErrUnsupportedVersion = fmt.Errorf("unsupported backup version")

	// ErrDecryptionFailed covers wrong password and corrupted ciphertext
	// alike; GCM cannot tell them apart and neither do we.
	ErrDecryptionFailed = fmt.Errorf("backup decryption failed: wrong password or corrupted file")
)

// Envelope is the outer, unencrypted backup structure. Salt, iterations
// and nonce are public parameters; everything sensitive lives inside
// Ciphertext. Byte fields marshal as base64 via encoding/json.
type Envelope struct {
	Version    uint32 `json:"version"`
	Salt       []byte `json:"salt"`
	Iterations uint32 `json:"iterations"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Payload is the decrypted backup content: every collection's records
// plus enough metadata to attribute the export.
type Payload struct {
	SchemaVersion   uint32                    `json:"schemaVersion"`
	ExportedAt      time.Time                 `json:"exportedAt"`
	SourceProfileID string                    `json:"sourceProfileId"`
	Collections     map[string][]store.Record `json:"collections"`
}

// Export serializes and encrypts a payload under a key derived from the
// password. Every export draws a fresh salt, so identical payloads never
// produce identical envelopes.
func Export(payload *Payload, password []byte, iterations uint32) (*Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize backup payload: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	kdf, err := crypto.NewKDF(iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to create KDF: %w", err)
	}
	key, err := kdf.DeriveKey(password)
	if err != nil {
		return nil, fmt.Errorf("failed to derive backup key: %w", err)
	}
	defer crypto.ClearBytes(key)

	enc := crypto.NewEncryptor(key)
	defer enc.Destroy()

	nonce, ciphertext, err := enc.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt backup: %w", err)
	}

	return &Envelope{
		Version:    EnvelopeVersion,
		Salt:       kdf.Salt,
		Iterations: kdf.Iterations,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Import decrypts an envelope and returns its payload. The version check
// happens first, before the expensive key derivation. Decryption is
// all-or-nothing: any tampering fails authentication and nothing partial
// is ever returned.
func Import(env *Envelope, password []byte) (*Payload, error) {
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, env.Version, EnvelopeVersion)
	}

	kdf := &crypto.KDF{Salt: env.Salt, Iterations: env.Iterations}
	key, err := kdf.DeriveKey(password)
	if err != nil {
		return nil, fmt.Errorf("failed to derive backup key: %w", err)
	}
	defer crypto.ClearBytes(key)

	enc := crypto.NewEncryptor(key)
	defer enc.Destroy()

	plaintext, err := enc.Open(env.Nonce, env.Ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer crypto.ClearBytes(plaintext)

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse backup payload: %w", err)
	}
	return &payload, nil
}

// WriteEnvelope writes an envelope to disk as indented JSON, owner-only
func WriteEnvelope(env *Envelope, path string) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}
	return nil
}

// ReadEnvelope reads an envelope from disk
func ReadEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse backup file: %w", err)
	}
	return &env, nil
}
