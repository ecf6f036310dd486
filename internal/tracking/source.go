package tracking

import (
	"context"
	"sync"
)

// ChannelSource is a PositionSource fed by hand. The WebSocket layer pushes
// each position message a client sends into one of these; tests use it to
// script fix sequences.
type ChannelSource struct {
	mu     sync.Mutex
	fixes  chan Fix
	closed bool
}

func NewChannelSource() *ChannelSource {
	return &ChannelSource{
		fixes: make(chan Fix, 16),
	}
}

// Watch hands out the fix channel. The source itself never denies
// permission; a caller that knows access was refused should not construct
// one in the first place.
func (s *ChannelSource) Watch(ctx context.Context) (<-chan Fix, error) {
	return s.fixes, nil
}

// Deliver pushes one successful position fix. Fixes are dropped when the
// consumer has fallen more than a buffer behind, matching how a device
// discards stale geolocation callbacks.
func (s *ChannelSource) Deliver(p Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.fixes <- Fix{Position: &p}:
	default:
	}
}

// Fail pushes one transient fix failure
func (s *ChannelSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.fixes <- Fix{Err: err}:
	default:
	}
}

// Close ends the subscription; the tracker session drains and exits
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.fixes)
	}
}
