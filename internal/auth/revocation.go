package auth

import (
	"sync"
	"time"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/metrics"
)

// SweepPolicy controls how the revocation store expires its entries.
type SweepPolicy string

const (
	// SweepBlanket clears the entire set on each sweep tick. This mirrors
	// the behavior observed in production: a credential revoked shortly
	// before a tick becomes acceptable again even though it has not
	// naturally expired. Kept as the default pending a decision from the
	// taxonomy owners; see SweepPerEntry for the corrected strategy.
	SweepBlanket SweepPolicy = "blanket"
	// SweepPerEntry prunes only entries whose own credential expiry has
	// passed, so a revocation holds for the credential's full lifetime.
	SweepPerEntry SweepPolicy = "per-entry"
)

// ParseSweepPolicy maps a config string onto a policy, defaulting to blanket.
func ParseSweepPolicy(s string) SweepPolicy {
	if s == string(SweepPerEntry) {
		return SweepPerEntry
	}
	return SweepBlanket
}

// RevocationStore holds credentials invalidated before their natural expiry.
// It is an injected process-scoped store, not a package singleton, so tests
// construct isolated instances. All map updates are single atomic operations
// under the mutex; there are no multi-step transactions to leave half done.
type RevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // credential -> credential expiry
	policy  SweepPolicy
	now     func() time.Time

	ticker *time.Ticker
	done   chan struct{}
}

// NewRevocationStore creates a store sweeping on the given interval. An
// interval of zero disables the timer; Sweep can still be called directly.
func NewRevocationStore(policy SweepPolicy, interval time.Duration) *RevocationStore {
	s := &RevocationStore{
		entries: make(map[string]time.Time),
		policy:  policy,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if interval > 0 {
		s.ticker = time.NewTicker(interval)
		go s.run()
	}
	return s
}

func (s *RevocationStore) run() {
	for {
		select {
		case <-s.ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}

// Revoke adds a credential to the set. expiry is the credential's own
// expiry, consulted only by the per-entry sweep policy.
func (s *RevocationStore) Revoke(credential string, expiry time.Time) {
	if credential == "" {
		return
	}
	s.mu.Lock()
	s.entries[credential] = expiry
	size := len(s.entries)
	s.mu.Unlock()
	metrics.SetRevokedCredentials(size)
}

// IsRevoked reports set membership.
func (s *RevocationStore) IsRevoked(credential string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[credential]
	return ok
}

// Len returns the number of held entries.
func (s *RevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep applies the store's policy once. Exposed so tests and the amnesty
// timer share one code path.
func (s *RevocationStore) Sweep() {
	s.mu.Lock()
	switch s.policy {
	case SweepPerEntry:
		now := s.now()
		for credential, expiry := range s.entries {
			if now.After(expiry) {
				delete(s.entries, credential)
			}
		}
	default:
		s.entries = make(map[string]time.Time)
	}
	size := len(s.entries)
	s.mu.Unlock()
	metrics.SetRevokedCredentials(size)
}

// Close stops the sweep timer.
func (s *RevocationStore) Close() {
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.done)
	}
}
