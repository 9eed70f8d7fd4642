// Package auth orchestrates PIN authentication for the vault: profile
// credential setup, verification with progressive lockout, PIN changes
// with salt rotation, and installation of derived keys into the in-memory
// session store. It composes crypto, pinguard, session, and store without
// owning any crypto or policy logic itself.
package auth
