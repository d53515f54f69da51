package llm

import (
	"context"
	"errors"
)

// SessionConfig is the fixed configuration of a chat session. It is supplied
// once at construction and never changes for the session's lifetime.
type SessionConfig struct {
	Model     string
	System    string
	MaxTokens int
}

// ChatSession is a single logical handle to the conversational endpoint,
// holding the fixed configuration and the rolling exchange history. A session
// is owned by exactly one widget instance and is never used concurrently.
type ChatSession struct {
	client  Client
	cfg     SessionConfig
	history []ChatMessage
}

// NewChatSession creates a session over an LLM client.
func NewChatSession(client Client, cfg SessionConfig) (*ChatSession, error) {
	if client == nil {
		return nil, errors.New("no LLM provider configured")
	}
	return &ChatSession{client: client, cfg: cfg}, nil
}

// Stream sends one user utterance and consumes the reply as a fragment
// sequence, invoking onFragment for each fragment in arrival order. On
// success the exchange is appended to the session history; on failure the
// user utterance stays in history so a retry carries the full context.
func (s *ChatSession) Stream(ctx context.Context, text string, onFragment func(fragment string) error) error {
	s.history = append(s.history, ChatMessage{Role: "user", Content: text})

	resp, err := s.client.CompleteStream(ctx, &CompletionRequest{
		Model:     s.cfg.Model,
		System:    s.cfg.System,
		Messages:  s.history,
		MaxTokens: s.cfg.MaxTokens,
		Stream:    true,
	}, func(token string, index int) error {
		return onFragment(token)
	})
	if err != nil {
		return err
	}

	s.history = append(s.history, ChatMessage{Role: "assistant", Content: resp.Content})
	return nil
}
