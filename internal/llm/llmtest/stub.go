// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/horizon/internal/llm"
)

// ErrExhausted is returned when a Stub has no scripted reply left
var ErrExhausted = errors.New("llmtest: no scripted reply left")

// Reply is one scripted outcome
type Reply struct {
	Text string
	Err  error
}

// Stub replays scripted replies in order, or answers through Handler when set.
// All requests are recorded.
type Stub struct {
	// Handler, when non-nil, computes the reply for each request
	Handler func(req llm.CompletionRequest) (string, error)

	// Available is returned by IsAvailable
	Available bool

	mu       sync.Mutex
	replies  []Reply
	requests []llm.CompletionRequest
}

// NewStub returns a stub that replays replies in order
func NewStub(replies ...Reply) *Stub {
	return &Stub{replies: replies, Available: true}
}

// Name returns "stub"
func (s *Stub) Name() string {
	return "stub"
}

// IsAvailable returns s.Available
func (s *Stub) IsAvailable(ctx context.Context) bool {
	return s.Available
}

// Complete records req and returns the next reply
func (s *Stub) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	handler := s.Handler
	var next Reply
	scripted := false
	if handler == nil {
		if len(s.replies) == 0 {
			s.mu.Unlock()
			return nil, ErrExhausted
		}
		next, s.replies = s.replies[0], s.replies[1:]
		scripted = true
	}
	s.mu.Unlock()

	if !scripted {
		text, err := handler(req)
		next = Reply{Text: text, Err: err}
	}

	if next.Err != nil {
		return nil, next.Err
	}
	return &llm.CompletionResponse{Text: next.Text, Model: "stub"}, nil
}

// Requests returns a copy of every request received
func (s *Stub) Requests() []llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.CompletionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns how many requests were received
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
