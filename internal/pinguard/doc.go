// Package pinguard implements progressive lockout against PIN brute force.
//
// A Policy maps cumulative failure counts to lockout durations. The Guard
// applies the policy to credential state as pure value transitions; callers
// persist the result. Lockouts are wall-clock deadlines re-checked on every
// attempt, so there are no timers and no permanently locked state.
package pinguard
