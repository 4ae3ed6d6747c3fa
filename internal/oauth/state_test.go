package oauth

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTerminalState(t *testing.T) {
	t.Run("Flags Flip Once", func(t *testing.T) {
		s := NewTerminalState()
		if s.Done() {
			t.Fatal("new state should not be done")
		}

		if !s.MarkCompleted() {
			t.Error("first MarkCompleted should flip the flag")
		}
		if s.MarkCompleted() {
			t.Error("second MarkCompleted should be a no-op")
		}
		if !s.Done() || !s.Completed() {
			t.Error("expected completed state to be done")
		}
		if s.Failed() || s.ClosedPrematurely() {
			t.Error("other flags should be untouched")
		}
	})

	t.Run("Any Flag Means Done", func(t *testing.T) {
		for name, mark := range map[string]func(*TerminalState) bool{
			"closed":    (*TerminalState).MarkClosedPrematurely,
			"completed": (*TerminalState).MarkCompleted,
			"failed":    (*TerminalState).MarkFailed,
		} {
			s := NewTerminalState()
			mark(s)
			if !s.Done() {
				t.Errorf("%s: expected done", name)
			}
		}
	})

	t.Run("Reset", func(t *testing.T) {
		s := NewTerminalState()
		s.MarkClosedPrematurely()
		s.MarkCompleted()
		s.MarkFailed()

		s.Reset()

		if s.Done() {
			t.Error("expected reset state not to be done")
		}
	})

	t.Run("Concurrent Marks Flip Exactly Once", func(t *testing.T) {
		s := NewTerminalState()
		var flips atomic.Int64
		var wg sync.WaitGroup

		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.MarkFailed() {
					flips.Add(1)
				}
			}()
		}
		wg.Wait()

		if flips.Load() != 1 {
			t.Errorf("expected one flip, got %d", flips.Load())
		}
	})
}

func TestParseMode(t *testing.T) {
	tt := map[string]Mode{
		"code":     ModeCode,
		" CODE ":   ModeCode,
		"implicit": ModeImplicit,
		"":         ModeImplicit,
		"token":    ModeImplicit,
	}
	for in, want := range tt {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %v, want %v", in, got, want)
		}
	}

	if ModeCode.String() != "code" || ModeImplicit.String() != "implicit" {
		t.Error("unexpected mode strings")
	}
}
