package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pinvault/pinvault/internal/crypto"
	"github.com/pinvault/pinvault/internal/pinguard"
	"github.com/pinvault/pinvault/internal/session"
	"github.com/pinvault/pinvault/internal/store"
)

var (
	// ErrInvalidPin is returned for any wrong PIN. Callers never learn
	// whether the salt, hash, or PIN itself was at fault.
	ErrInvalidPin = errors.New("invalid PIN")

	// ErrProfileExists is returned when creating a profile that already has credentials
	ErrProfileExists = errors.New("profile already exists")

	// ErrProfileNotFound is returned when no credentials exist for a profile
	ErrProfileNotFound = errors.New("profile not found")
)

// LockedOutError is returned while a lockout window is active, including
// the time remaining until attempts are allowed again.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked out for %s", e.Remaining.Round(time.Second))
}

// Service orchestrates PIN setup, verification, lockout enforcement, and
// session key custody for one vault.
type Service struct {
	store      *store.Store
	sessions   *session.Store
	guard      pinguard.Guard
	iterations uint32
	now        func() time.Time

	mu       sync.Mutex
	profiles map[string]*sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithIterations overrides the PBKDF2 iteration count used for new credentials
func WithIterations(n uint32) Option {
	return func(s *Service) { s.iterations = n }
}

// WithPolicy overrides the lockout escalation policy
func WithPolicy(p pinguard.Policy) Option {
	return func(s *Service) { s.guard = pinguard.NewGuard(p) }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an authentication service backed by the given store
// and session key store.
func NewService(st *store.Store, sessions *session.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		sessions:   sessions,
		guard:      pinguard.NewGuard(pinguard.DefaultPolicy()),
		iterations: crypto.DefaultIters,
		now:        time.Now,
		profiles:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the session key store the service installs keys into
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// profileLock serializes attempts per profile so that failure counts and
// lockout deadlines never race.
func (s *Service) profileLock(profileID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.profiles[profileID]
	if !ok {
		m = &sync.Mutex{}
		s.profiles[profileID] = m
	}
	return m
}

// CreateProfile sets up credentials for a new profile: fresh random salt,
// derived verification hash, zeroed failure state. The PIN itself is never
// stored in any form.
func (s *Service) CreateProfile(ctx context.Context, profileID string, pin []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.profileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.store.GetCredential(profileID); err == nil {
		return ErrProfileExists
	} else if !errors.Is(err, store.ErrCredentialNotFound) {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	kdf, err := crypto.NewKDF(s.iterations)
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	key, err := kdf.DeriveKey(pin)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer crypto.ClearBytes(key)

	now := s.now()
	cred := store.Credential{
		ProfileID:        profileID,
		Salt:             kdf.Salt,
		Iterations:       kdf.Iterations,
		VerificationHash: crypto.VerificationHash(key),
		LastActivityAt:   now,
		CreatedAt:        now,
	}
	if err := s.store.PutCredential(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	log.Info().Str("profile", profileID).Msg("Profile created")
	return nil
}

// Login verifies the PIN and, on success, installs the derived key into
// the session store. The lockout check runs before any key derivation so
// a locked-out caller learns nothing from response timing.
func (s *Service) Login(ctx context.Context, profileID string, pin []byte, persistent bool) error {
	key, err := s.verify(ctx, profileID, pin)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(key)

	s.sessions.Put(profileID, key, persistent)
	log.Info().Str("profile", profileID).Bool("persistent", persistent).Msg("Session unlocked")
	return nil
}

// VerifyPin checks the PIN without creating a session. It walks the same
// lockout and failure-count path as Login.
func (s *Service) VerifyPin(ctx context.Context, profileID string, pin []byte) error {
	key, err := s.verify(ctx, profileID, pin)
	if err != nil {
		return err
	}
	crypto.ClearBytes(key)
	return nil
}

// verify runs the full attempt sequence and returns the derived key on
// success. Failure state is persisted before any error is returned.
func (s *Service) verify(ctx context.Context, profileID string, pin []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.profileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.store.GetCredential(profileID)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	cred := *stored

	now := s.now()
	if !s.guard.CanAttempt(cred, now) {
		remaining := s.guard.Remaining(cred, now)
		log.Warn().Str("profile", profileID).Dur("remaining", remaining).Msg("Attempt rejected during lockout")
		return nil, &LockedOutError{Remaining: remaining}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kdf := &crypto.KDF{Salt: cred.Salt, Iterations: cred.Iterations}
	key, err := kdf.DeriveKey(pin)
	if err != nil {
		return nil, ErrInvalidPin
	}

	if !crypto.ConstantTimeCompare(crypto.VerificationHash(key), cred.VerificationHash) {
		crypto.ClearBytes(key)

		cred = s.guard.RecordFailure(cred, now)
		if err := s.store.PutCredential(cred); err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}

		log.Warn().Str("profile", profileID).Uint32("failures", cred.FailedAttempts).Msg("Invalid PIN")
		if !s.guard.CanAttempt(cred, now) {
			return nil, &LockedOutError{Remaining: s.guard.Remaining(cred, now)}
		}
		return nil, ErrInvalidPin
	}

	cred = s.guard.RecordSuccess(cred, now)
	if err := s.store.PutCredential(cred); err != nil {
		crypto.ClearBytes(key)
		return nil, fmt.Errorf("failed to reset attempt counter: %w", err)
	}

	return key, nil
}

// Logout removes the profile's session key from memory
func (s *Service) Logout(profileID string) {
	s.sessions.Remove(profileID)
	log.Info().Str("profile", profileID).Msg("Session locked")
}

// ChangePin verifies the old PIN, then re-derives credentials with a brand
// new salt and rewrites the verification hash. A live session key for the
// profile is rotated in place, keeping its persistent flag.
func (s *Service) ChangePin(ctx context.Context, profileID string, oldPin, newPin []byte) error {
	if err := s.VerifyPin(ctx, profileID, oldPin); err != nil {
		return err
	}

	lock := s.profileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.store.GetCredential(profileID)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}
	cred := *stored

	kdf, err := crypto.NewKDF(s.iterations)
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	key, err := kdf.DeriveKey(newPin)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer crypto.ClearBytes(key)

	cred.Salt = kdf.Salt
	cred.Iterations = kdf.Iterations
	cred.VerificationHash = crypto.VerificationHash(key)
	cred.LastActivityAt = s.now()
	if err := s.store.PutCredential(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	if handle, ok := s.sessions.Handle(profileID); ok {
		crypto.ClearBytes(handle.Key)
		s.sessions.Put(profileID, key, handle.Persistent)
	}

	log.Info().Str("profile", profileID).Msg("PIN changed")
	return nil
}
