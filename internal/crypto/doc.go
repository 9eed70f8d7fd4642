// Package crypto provides cryptographic operations for pinvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from a PIN or password via PBKDF2
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted)
//   - 210,000 iterations by default (OWASP minimum recommendation)
//   - iteration count persisted per profile so it can be raised later
//     without breaking existing profiles
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
