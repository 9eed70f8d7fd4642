// Package backup implements the encrypted backup format and merge import.
//
// An export is a versioned JSON envelope: public KDF parameters (fresh
// salt per export) plus an AES-256-GCM ciphertext of the full payload.
// Import verifies the version before deriving any key, decrypts
// all-or-nothing, and merges records additively with fresh ids inside a
// single store transaction.
package backup
