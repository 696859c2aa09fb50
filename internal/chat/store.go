// Package chat runs practice conversations grounded in a job description.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rbright/rehearse/internal/llm"
)

var (
	ErrUnknownSession = errors.New("unknown chat session")
	ErrExpired        = errors.New("chat session expired")
)

// DefaultTTL is how long an idle conversation is kept.
const DefaultTTL = 30 * time.Minute

type conversation struct {
	system   string
	turns    []llm.Turn
	lastUsed time.Time
}

// Store holds live conversations keyed by id. Entries are created by Start
// and removed by End, by Get after the TTL, or by Sweep.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*conversation
}

// NewStore returns an empty store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*conversation),
	}
}

func (s *Store) put(id string, c *conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.lastUsed = s.now()
	s.entries[id] = c
}

// get returns a copy of the conversation and refreshes its idle timer.
func (s *Store) get(id string) (conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[id]
	if !ok {
		return conversation{}, ErrUnknownSession
	}
	now := s.now()
	if now.Sub(c.lastUsed) > s.ttl {
		delete(s.entries, id)
		return conversation{}, ErrExpired
	}
	c.lastUsed = now
	return conversation{
		system:   c.system,
		turns:    append([]llm.Turn(nil), c.turns...),
		lastUsed: now,
	}, nil
}

// appendTurns records turns on a live conversation.
func (s *Store) appendTurns(id string, turns ...llm.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[id]
	if !ok {
		return ErrUnknownSession
	}
	c.turns = append(c.turns, turns...)
	c.lastUsed = s.now()
	return nil
}

// Turns returns the recorded history of a live conversation.
func (s *Store) Turns(id string) ([]llm.Turn, error) {
	c, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return c.turns, nil
}

// End removes a conversation. Ending an unknown id reports ErrUnknownSession.
func (s *Store) End(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrUnknownSession
	}
	delete(s.entries, id)
	return nil
}

// Len reports how many conversations are held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every conversation idle longer than the TTL and returns the count.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, c := range s.entries {
		if now.Sub(c.lastUsed) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = s.ttl / 2
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
