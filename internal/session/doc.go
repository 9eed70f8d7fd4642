// Package session holds derived vault keys for the lifetime of an
// unlocked session.
//
// The store is process-wide, in-memory state: keys are copied in and out,
// zeroed on removal, and never serialized to disk. Clearing ephemeral
// entries on lock/background is cooperative - the app shell owns the
// trigger and calls ClearEphemeral or ClearAll.
package session
