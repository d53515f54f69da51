// Package assembler manages a widget's exchanges with the assistant backend:
// one streamed reply at a time, rendered incrementally, with partial progress
// preserved on failure.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/helpbench/support-console/pkg/logger"
)

// State is the assembler's exchange state.
type State int

const (
	// StateIdle means no exchange is in flight.
	StateIdle State = iota
	// StateInitializing means the lazy session handle is being created.
	StateInitializing
	// StateSending means a turn has been dispatched and no fragment has
	// arrived yet.
	StateSending
	// StateStreaming means fragments are being accumulated.
	StateStreaming
)

// Role identifies who authored a turn.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Only the placeholder assistant turn of an
// in-flight exchange is ever mutated; everything else is immutable.
type Turn struct {
	Seq     int    `json:"seq"`
	Role    Role   `json:"role"`
	Text    string `json:"text"`
	Settled bool   `json:"settled"`
}

// Session is the handle to the conversational endpoint. Its configuration is
// fixed at construction.
type Session interface {
	Stream(ctx context.Context, text string, onFragment func(fragment string) error) error
}

// SessionFactory creates the session lazily on first send. A construction
// failure is not cached: the factory is called again on the next send.
type SessionFactory func(ctx context.Context) (Session, error)

// FailureMessage is the fixed transcript text shown when an exchange fails.
const FailureMessage = "Sorry, I ran into a problem answering that. Please try again."

// InitFailureMessage is the fixed transcript text shown when the session
// handle could not be created.
const InitFailureMessage = "Sorry, the assistant is unavailable right now. Please try again."

var (
	// ErrEmptyInput is returned when the trimmed input is empty.
	ErrEmptyInput = errors.New("input is empty")
	// ErrSendInFlight is returned when an exchange has not settled yet.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrClosed is returned when the assembler has been closed.
	ErrClosed = errors.New("assembler is closed")
)

// Assembler owns one widget's transcript and drives at most one exchange at
// a time.
type Assembler struct {
	newSession SessionFactory
	onChange   func()
	logger     *logger.Logger

	mu      sync.Mutex
	state   State
	session Session
	turns   []Turn
	nextSeq int
	closed  bool
}

// New creates an assembler. onChange, if non-nil, fires after every
// transcript mutation so the caller can re-render; it is called without the
// internal lock held.
func New(factory SessionFactory, onChange func(), log *logger.Logger) *Assembler {
	return &Assembler{
		newSession: factory,
		onChange:   onChange,
		logger:     log,
		state:      StateIdle,
	}
}

// State returns the current exchange state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Transcript returns a copy of the turns.
func (a *Assembler) Transcript() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Turn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Close marks the widget as torn down. In-flight fragments stop mutating the
// transcript; the transcript is left exactly as it was.
func (a *Assembler) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

// Send dispatches one exchange: it appends the human turn and an empty
// placeholder assistant turn, then consumes the reply stream into the
// placeholder. Empty (after trimming) input and overlapping sends are
// rejected outright with no side effects. Send blocks until the exchange
// settles; failures are surfaced in the transcript as well as returned.
func (a *Assembler) Send(ctx context.Context, text string) error {
	return a.SendStream(ctx, text, nil)
}

// SendStream is Send with a per-fragment observer, invoked after each
// fragment has been applied to the placeholder turn. An observer error stops
// the stream and settles the exchange as failed.
func (a *Assembler) SendStream(ctx context.Context, text string, observe func(fragment string, index int) error) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.state != StateIdle {
		a.mu.Unlock()
		return ErrSendInFlight
	}

	// Lazy session creation on first use.
	if a.session == nil {
		a.state = StateInitializing
		a.mu.Unlock()

		session, err := a.newSession(ctx)

		a.mu.Lock()
		if a.closed {
			// Torn down while the handle was being built: the transcript is
			// left untouched and no stream is requested.
			a.state = StateIdle
			a.mu.Unlock()
			return ErrClosed
		}
		if err != nil {
			// The handle stays unset; the next send retries construction.
			a.appendTurnLocked(RoleAssistant, InitFailureMessage, true)
			a.state = StateIdle
			a.mu.Unlock()
			a.notify()
			return fmt.Errorf("failed to create assistant session: %w", err)
		}
		a.session = session
	}

	a.appendTurnLocked(RoleHuman, text, true)
	placeholder := a.appendTurnLocked(RoleAssistant, "", false)
	a.state = StateSending
	session := a.session
	a.mu.Unlock()
	a.notify()

	index := 0
	err := session.Stream(ctx, text, func(fragment string) error {
		a.mu.Lock()
		if a.closed || ctx.Err() != nil {
			a.mu.Unlock()
			return context.Canceled
		}
		a.state = StateStreaming
		a.turns[placeholder].Text += fragment
		a.mu.Unlock()
		a.notify()

		if observe != nil {
			if err := observe(fragment, index); err != nil {
				return err
			}
		}
		index++
		return nil
	})

	a.mu.Lock()
	if a.closed || ctx.Err() != nil {
		// Torn down mid-stream: no further transcript mutation.
		a.state = StateIdle
		a.mu.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		return err
	}

	if err != nil {
		if a.turns[placeholder].Text == "" {
			// No fragment ever arrived: the placeholder becomes the error.
			a.turns[placeholder].Text = FailureMessage
		} else {
			// Partial progress is never discarded; the failure gets its own
			// turn after it.
			a.appendTurnLocked(RoleAssistant, FailureMessage, true)
		}
		a.turns[placeholder].Settled = true
		a.state = StateIdle
		a.mu.Unlock()
		a.notify()

		a.logger.Warn("assistant stream failed", zap.Error(err))
		return fmt.Errorf("assistant stream failed: %w", err)
	}

	// An empty completed reply is valid and settles normally.
	a.turns[placeholder].Settled = true
	a.state = StateIdle
	a.mu.Unlock()
	a.notify()
	return nil
}

// appendTurnLocked appends a turn and returns its index. Caller holds the lock.
func (a *Assembler) appendTurnLocked(role Role, text string, settled bool) int {
	a.turns = append(a.turns, Turn{
		Seq:     a.nextSeq,
		Role:    role,
		Text:    text,
		Settled: settled,
	})
	a.nextSeq++
	return len(a.turns) - 1
}

func (a *Assembler) notify() {
	if a.onChange != nil {
		a.onChange()
	}
}
