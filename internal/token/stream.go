// Package token holds the bearer token shared by every remote API call.
package token

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/cloo-solutions/orderdesk/internal/bridge"
)

// Stream is a current-value holder for the bearer token. It starts empty and
// callers of Wait block until a non-empty value has been published.
type Stream struct {
	mu      sync.Mutex
	current string
	changed chan struct{}
}

func NewStream() *Stream {
	return &Stream{changed: make(chan struct{})}
}

// Publish replaces the current token. An empty token clears it; waiters keep
// waiting until a non-empty value arrives.
func (s *Stream) Publish(token string) {
	s.mu.Lock()
	s.current = token
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Current returns the current token and whether one is set.
func (s *Stream) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// Wait returns the first non-empty token current at or after the call. The
// returned value is a snapshot; later publishes do not affect it.
func (s *Stream) Wait(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		if s.current != "" {
			tok := s.current
			s.mu.Unlock()
			return tok, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-changed:
		}
	}
}

// Follow publishes every api:token message received from the host until ctx
// is done. Payloads that are not a JSON string are ignored.
func (s *Stream) Follow(ctx context.Context, b *bridge.Bridge) {
	tokens := b.Receive(ctx, bridge.KindAPIToken)
	go func() {
		for data := range tokens {
			var tok string
			if err := json.Unmarshal(data, &tok); err != nil {
				log.Printf("token: ignoring malformed api:token payload: %v", err)
				continue
			}
			s.Publish(tok)
		}
	}()
}
