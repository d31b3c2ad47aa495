package domain

import "sync"

// ForwardingSession holds the live-forwarding switch. It is owned by the
// command interpreter and injected into the fan-out engine; message handlers
// run concurrently, hence the lock.
type ForwardingSession struct {
	mu     sync.Mutex
	active bool
}

// NewForwardingSession returns a session with forwarding active.
func NewForwardingSession() *ForwardingSession {
	return &ForwardingSession{active: true}
}

// Active reports whether live forwarding is on.
func (s *ForwardingSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop turns forwarding off. Returns false if it was already off.
func (s *ForwardingSession) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.active = false
	return true
}

// Start turns forwarding on. Returns false if it was already on.
func (s *ForwardingSession) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}
