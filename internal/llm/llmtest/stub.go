// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"
)

// Call records one Complete invocation.
type Call struct {
	Prompt    string
	MaxTokens int
}

// Stub replies with Reply (or the next entry of Replies) and records calls.
type Stub struct {
	Reply   string
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []Call
}

// Complete implements llm.Completer.
func (s *Stub) Complete(_ context.Context, prompt string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, MaxTokens: maxTokens})
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Replies) > 0 {
		reply := s.Replies[0]
		s.Replies = s.Replies[1:]
		return reply, nil
	}
	if s.Reply == "" {
		return "", errors.New("llmtest: no reply scripted")
	}
	return s.Reply, nil
}

// Model implements llm.Completer.
func (s *Stub) Model() string {
	return "stub-model"
}

// Calls returns the recorded calls.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (s *Stub) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1].Prompt
}
