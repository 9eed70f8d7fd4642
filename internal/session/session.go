package session

import (
	"sync"

	"github.com/pinvault/pinvault/internal/crypto"
)

// Handle is the caller-facing view of an unlocked session. The key is a
// private copy; the store keeps its own.
type Handle struct {
	SessionID  string
	Key        []byte
	Persistent bool
}

type entry struct {
	key        []byte
	persistent bool
}

// Store holds derived keys for unlocked sessions, in memory only.
// Entries live until removed, cleared, or the process exits; nothing is
// ever written to a durable medium.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty session key store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Put installs a key for a session, replacing any previous entry.
// persistent=false marks the entry for removal on the app's lock trigger
// (see ClearEphemeral); persistent=true keeps it until app restart.
func (s *Store) Put(sessionID string, key []byte, persistent bool) {
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[sessionID]; ok {
		crypto.ClearBytes(old.key)
	}
	s.entries[sessionID] = &entry{key: keyCopy, persistent: persistent}
}

// Get returns a copy of the session key, or false if no session exists
func (s *Store) Get(sessionID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, false
	}
	keyCopy := make([]byte, len(e.key))
	copy(keyCopy, e.key)
	return keyCopy, true
}

// Handle returns the full handle for a session, or false if none exists
func (s *Store) Handle(sessionID string) (Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return Handle{}, false
	}
	keyCopy := make([]byte, len(e.key))
	copy(keyCopy, e.key)
	return Handle{SessionID: sessionID, Key: keyCopy, Persistent: e.persistent}, true
}

// Remove destroys a session, zeroing its key material
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[sessionID]; ok {
		crypto.ClearBytes(e.key)
		delete(s.entries, sessionID)
	}
}

// ClearAll destroys every session, zeroing all key material
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		crypto.ClearBytes(e.key)
		delete(s.entries, id)
	}
}

// ClearEphemeral destroys sessions installed with persistent=false.
// The app shell calls this from its lock/background trigger.
func (s *Store) ClearEphemeral() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if !e.persistent {
			crypto.ClearBytes(e.key)
			delete(s.entries, id)
		}
	}
}

// Active returns the session IDs currently held
func (s *Store) Active() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
