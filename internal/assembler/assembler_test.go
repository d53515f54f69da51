package assembler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helpbench/support-console/pkg/logger"
)

// sessionFunc adapts a function to the Session interface.
type sessionFunc func(ctx context.Context, text string, onFragment func(string) error) error

func (f sessionFunc) Stream(ctx context.Context, text string, onFragment func(string) error) error {
	return f(ctx, text, onFragment)
}

func scripted(fragments []string, streamErr error) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return sessionFunc(func(ctx context.Context, text string, onFragment func(string) error) error {
			for _, frag := range fragments {
				if err := onFragment(frag); err != nil {
					return err
				}
			}
			return streamErr
		}), nil
	}
}

func assistantTurns(turns []Turn) []Turn {
	var out []Turn
	for _, t := range turns {
		if t.Role == RoleAssistant {
			out = append(out, t)
		}
	}
	return out
}

func TestSend_ConcatenatesFragmentsInOrder(t *testing.T) {
	a := New(scripted([]string{"He", "llo", " there!"}, nil), nil, logger.NewNop())

	if err := a.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	turns := a.Transcript()
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Role != RoleHuman || turns[0].Text != "Hello" {
		t.Fatalf("human turn = %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Text != "Hello there!" {
		t.Fatalf("assistant turn = %+v, want text %q", turns[1], "Hello there!")
	}
	if !turns[1].Settled {
		t.Fatalf("assistant turn not settled after stream completion")
	}
	if a.State() != StateIdle {
		t.Fatalf("state = %d, want StateIdle", a.State())
	}
}

func TestSend_TrimsInputAndRejectsEmpty(t *testing.T) {
	a := New(scripted([]string{"ok"}, nil), nil, logger.NewNop())

	if err := a.Send(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Send(whitespace) error = %v, want ErrEmptyInput", err)
	}
	if got := len(a.Transcript()); got != 0 {
		t.Fatalf("transcript has %d turns after rejected send, want 0", got)
	}

	if err := a.Send(context.Background(), "  hi  "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if turns := a.Transcript(); turns[0].Text != "hi" {
		t.Fatalf("human turn text = %q, want trimmed %q", turns[0].Text, "hi")
	}
}

func TestSend_EmptyCompletedReplySettles(t *testing.T) {
	a := New(scripted(nil, nil), nil, logger.NewNop())

	if err := a.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	assistant := assistantTurns(a.Transcript())
	if len(assistant) != 1 {
		t.Fatalf("assistant turns = %d, want 1", len(assistant))
	}
	if assistant[0].Text != "" || !assistant[0].Settled {
		t.Fatalf("assistant turn = %+v, want empty settled turn", assistant[0])
	}
}

func TestSend_ErrorAfterFragments_PreservesPartialText(t *testing.T) {
	a := New(scripted([]string{"Sor"}, errors.New("stream broke")), nil, logger.NewNop())

	if err := a.Send(context.Background(), "Hi"); err == nil {
		t.Fatalf("Send() error = nil, want stream error")
	}

	assistant := assistantTurns(a.Transcript())
	if len(assistant) != 2 {
		t.Fatalf("assistant turns = %d, want 2 (partial + failure)", len(assistant))
	}
	if assistant[0].Text != "Sor" {
		t.Fatalf("partial turn text = %q, want %q", assistant[0].Text, "Sor")
	}
	if assistant[1].Text != FailureMessage {
		t.Fatalf("failure turn text = %q, want FailureMessage", assistant[1].Text)
	}

	human := 0
	for _, turn := range a.Transcript() {
		if turn.Role == RoleHuman {
			human++
		}
	}
	if human != 1 {
		t.Fatalf("human turns = %d, want 1", human)
	}
}

func TestSend_ErrorBeforeAnyFragment_OverwritesPlaceholder(t *testing.T) {
	a := New(scripted(nil, errors.New("stream broke")), nil, logger.NewNop())

	if err := a.Send(context.Background(), "Hi"); err == nil {
		t.Fatalf("Send() error = nil, want stream error")
	}

	assistant := assistantTurns(a.Transcript())
	if len(assistant) != 1 {
		t.Fatalf("assistant turns = %d, want exactly 1", len(assistant))
	}
	if assistant[0].Text != FailureMessage {
		t.Fatalf("assistant turn text = %q, want FailureMessage", assistant[0].Text)
	}
}

func TestSend_RejectsWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	factory := func(ctx context.Context) (Session, error) {
		return sessionFunc(func(ctx context.Context, text string, onFragment func(string) error) error {
			close(started)
			<-release
			return nil
		}), nil
	}

	a := New(factory, nil, logger.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- a.Send(context.Background(), "first")
	}()

	<-started
	if err := a.Send(context.Background(), "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("overlapping Send() error = %v, want ErrSendInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	// The rejected send left no trace.
	turns := a.Transcript()
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
}

func TestSend_SessionInitFailureRetriesNextSend(t *testing.T) {
	calls := 0
	factory := func(ctx context.Context) (Session, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("construction failed")
		}
		return sessionFunc(func(ctx context.Context, text string, onFragment func(string) error) error {
			return onFragment("ok")
		}), nil
	}

	a := New(factory, nil, logger.NewNop())

	if err := a.Send(context.Background(), "hi"); err == nil {
		t.Fatalf("Send() error = nil, want init failure")
	}
	turns := a.Transcript()
	if len(turns) != 1 || turns[0].Role != RoleAssistant || turns[0].Text != InitFailureMessage {
		t.Fatalf("transcript after init failure = %+v, want one synthetic assistant turn", turns)
	}

	if err := a.Send(context.Background(), "hi again"); err != nil {
		t.Fatalf("retry Send() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("factory calls = %d, want 2 (failure not cached)", calls)
	}
}

func TestClose_StopsTranscriptMutation(t *testing.T) {
	delivered := make(chan struct{})
	proceed := make(chan struct{})
	factory := func(ctx context.Context) (Session, error) {
		return sessionFunc(func(ctx context.Context, text string, onFragment func(string) error) error {
			if err := onFragment("par"); err != nil {
				return err
			}
			close(delivered)
			<-proceed
			// Transport keeps pushing after teardown.
			return onFragment("tial")
		}), nil
	}

	a := New(factory, nil, logger.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- a.Send(context.Background(), "hi")
	}()

	<-delivered
	a.Close()
	close(proceed)

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("Send() error = nil after Close, want cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Send() did not return after Close")
	}

	for _, turn := range a.Transcript() {
		if turn.Text == FailureMessage {
			t.Fatalf("failure turn appended after Close")
		}
		if turn.Role == RoleAssistant && turn.Text != "par" {
			t.Fatalf("assistant turn mutated after Close: %+v", turn)
		}
	}
}

func TestClose_DuringSessionInitAppendsNothing(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	factory := func(ctx context.Context) (Session, error) {
		close(entered)
		<-release
		return sessionFunc(func(ctx context.Context, text string, onFragment func(string) error) error {
			return onFragment("should never stream")
		}), nil
	}

	a := New(factory, nil, logger.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- a.Send(context.Background(), "hi")
	}()

	<-entered
	a.Close()
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Send() error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Send() did not return after Close")
	}

	if turns := a.Transcript(); len(turns) != 0 {
		t.Fatalf("transcript has %d turns after close during init, want 0", len(turns))
	}
}

func TestSend_ObserverSeesFragmentsInOrder(t *testing.T) {
	a := New(scripted([]string{"a", "b", "c"}, nil), nil, logger.NewNop())

	var got []string
	var indexes []int
	err := a.SendStream(context.Background(), "hi", func(fragment string, index int) error {
		got = append(got, fragment)
		indexes = append(indexes, index)
		return nil
	})
	if err != nil {
		t.Fatalf("SendStream() error = %v", err)
	}

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("observed fragments = %v", got)
	}
	for i, idx := range indexes {
		if idx != i {
			t.Fatalf("fragment index = %d, want %d", idx, i)
		}
	}
}
