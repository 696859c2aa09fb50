package llm

import (
	"context"
	"sync"
)

// Scripted replays canned replies in order and records every request.
// It is used by offline tests of packages built on Completer.
type Scripted struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	Requests []Request
}

// NewScripted returns a Completer that answers with replies in order.
func NewScripted(replies ...string) *Scripted {
	return &Scripted{replies: replies}
}

// FailNext queues err for the next call before any remaining replies.
func (s *Scripted) FailNext(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	return s
}

func (s *Scripted) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	if len(s.replies) == 0 {
		return "", ErrEmptyResponse
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// Calls returns how many requests were made.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
