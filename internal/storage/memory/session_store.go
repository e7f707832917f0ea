package memory

import (
	"sync"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/domain"
)

// SessionStore holds pending purchases keyed by gateway token. It is the only
// shared mutable state in the service; all operations are safe for concurrent
// use and none performs I/O under the lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.PendingPurchase
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.PendingPurchase),
	}
}

// Insert registers a pending purchase under its token. Tokens are gateway-issued
// and never reused, so an existing entry indicates a bug upstream; it is
// rejected rather than overwritten.
func (s *SessionStore) Insert(purchase domain.PendingPurchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[purchase.Token]; exists {
		return domain.ErrDuplicateToken
	}
	s.sessions[purchase.Token] = purchase
	return nil
}

// Lookup returns the pending purchase for a token without mutating the store.
func (s *SessionStore) Lookup(token string) (domain.PendingPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, ok := s.sessions[token]
	if !ok {
		return domain.PendingPurchase{}, domain.ErrTokenNotFound
	}
	return purchase, nil
}

// Delete removes the record for a token. Deleting an absent token is a no-op so
// that a confirm and a sweep racing near expiry stay benign.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// SweepExpired evicts every record older than ttl at the given instant and
// returns how many were removed.
func (s *SessionStore) SweepExpired(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, purchase := range s.sessions {
		if now.Sub(purchase.CreatedAt) >= ttl {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of pending purchases currently held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
