package application

import (
	"sync"

	"github.com/ericfisherdev/searchpanel/internal/domain/model"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// SessionState is the single observable session record. Anyone may read it or
// subscribe to it; only the SessionManager in this package can change it.
type SessionState struct {
	mu      sync.RWMutex
	current model.Session
	subs    map[*Subscription]struct{}
}

// NewSessionState creates an unauthenticated, idle SessionState.
func NewSessionState() *SessionState {
	return &SessionState{subs: make(map[*Subscription]struct{})}
}

// Snapshot returns a copy of the current session.
func (s *SessionState) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySession(s.current)
}

// Subscription receives a snapshot after every change. Only the latest
// snapshot is buffered; a slow reader skips intermediate states.
type Subscription struct {
	C <-chan model.Session

	ch    chan model.Session
	state *SessionState
	once  sync.Once
}

// Subscribe registers a subscriber. The current snapshot is delivered
// immediately. Callers must Close the subscription when done.
func (s *SessionState) Subscribe() *Subscription {
	ch := make(chan model.Session, 1)
	sub := &Subscription{C: ch, ch: ch, state: s}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub] = struct{}{}
	ch <- copySession(s.current)
	metrics.SessionSubscribers.Inc()

	return sub
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.state
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, sub)
		close(sub.ch)
		metrics.SessionSubscribers.Dec()
	})
}

// Subscribers returns the number of attached subscriptions.
func (s *SessionState) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// update applies fn to the session and publishes the result. It never
// publishes IsAuthenticated without a User.
func (s *SessionState) update(fn func(*model.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copySession(s.current)
	fn(&next)
	if next.User == nil {
		next.IsAuthenticated = false
	}
	s.current = next

	for sub := range s.subs {
		publish(sub.ch, copySession(next))
	}
}

// publish delivers snap without blocking, replacing an unread older snapshot.
func publish(ch chan model.Session, snap model.Session) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

func copySession(in model.Session) model.Session {
	out := in
	if in.User != nil {
		u := *in.User
		out.User = &u
	}
	return out
}
