package store

import (
	"time"
)

// Credential is the persisted per-profile authentication record. It never
// contains the PIN or the derived key: VerificationHash is a digest of the
// derived key, and Salt/Iterations let the key be re-derived for checking.
// Salt is generated once at profile creation and only replaced wholesale
// on a PIN change.
type Credential struct {
	ProfileID        string     `json:"profileId"`
	Salt             []byte     `json:"salt"`
	Iterations       uint32     `json:"iterations"`
	VerificationHash []byte     `json:"verificationHash"`
	FailedAttempts   uint32     `json:"failedAttempts"`
	LockoutUntil     *time.Time `json:"lockoutUntil,omitempty"`
	LastActivityAt   time.Time  `json:"lastActivityAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Record is an opaque vault record. The core only interprets the id and
// profileId fields; everything else belongs to the surrounding app.
type Record map[string]any

// Record field names the core interprets or stamps.
const (
	FieldID        = "id"
	FieldProfileID = "profileId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ID returns the record's id field, or "" if absent
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// ProfileID returns the record's profileId field, or "" if absent
func (r Record) ProfileID() string {
	id, _ := r[FieldProfileID].(string)
	return id
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
