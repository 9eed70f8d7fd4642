// Package store provides the BBolt database interface for pinvault.
//
// Database structure uses three buckets:
//   - config: schema version, timestamps, vault ID (unencrypted)
//   - credentials: per-profile salt, iterations and verification hash -
//     never the PIN or a derived key
//   - records: one nested bucket per collection (transactions, accounts,
//     documents, ...), record id -> JSON record
//
// Transact exposes the single transactional scope that backup import
// runs in: all collections commit or none do. OnInsert registers
// pre-commit hooks (auto-timestamping) as an explicit capability.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package store
