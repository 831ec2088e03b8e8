package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is the per-visitor state kept between requests.
type Session struct {
	ID            string
	UserID        string
	Cart          []domain.CartEntry
	CheckoutToken string
	OrderIDs      []string
	ExpiresAt     time.Time
}

func (s Session) clone() Session {
	s.Cart = append([]domain.CartEntry(nil), s.Cart...)
	s.OrderIDs = append([]string(nil), s.OrderIDs...)
	return s
}

// Owns reports whether orderID was placed from this session.
func (s Session) Owns(orderID string) bool {
	return slices.Contains(s.OrderIDs, orderID)
}

// Store keeps sessions in memory with a sliding TTL. Expired sessions are invisible
// immediately and reclaimed by Sweep.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts an empty session.
func (s *Store) Create(_ context.Context) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:        uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions[sess.ID] = sess
	return sess.clone()
}

// Get returns a live session and extends its expiry.
func (s *Store) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(id)
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = s.now().Add(s.ttl)
	return sess.clone(), nil
}

// Update applies fn to the session atomically. Changes are discarded if fn fails.
func (s *Store) Update(_ context.Context, id string, fn func(sess *Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.live(id)
	if err != nil {
		return Session{}, err
	}

	draft := sess.clone()
	if err := fn(&draft); err != nil {
		return Session{}, err
	}
	draft.ID = id
	draft.ExpiresAt = s.now().Add(s.ttl)
	*sess = draft
	return sess.clone(), nil
}

func (s *Store) live(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Sweep deletes expired sessions and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Checkout binds the session to the checkout flow.
func (s *Store) Checkout(id string) *CheckoutSession {
	return &CheckoutSession{store: s, id: id}
}

// CheckoutSession resets a session after an order is placed.
type CheckoutSession struct {
	store *Store
	id    string
}

// Complete records orderID as owned by the session, empties the cart and rotates the token.
func (c *CheckoutSession) Complete(ctx context.Context, orderID, nextToken string) error {
	_, err := c.store.Update(ctx, c.id, func(sess *Session) error {
		sess.Cart = nil
		sess.CheckoutToken = nextToken
		if !slices.Contains(sess.OrderIDs, orderID) {
			sess.OrderIDs = append(sess.OrderIDs, orderID)
		}
		return nil
	})
	return err
}
