package oauth

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/twlogin/internal/events"
	tu "github.com/desertthunder/twlogin/internal/testing"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func recordOutcomes(bus *events.Bus) *outcomeRecorder {
	r := &outcomeRecorder{}
	events.Subscribe(bus, func(o Outcome) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.outcomes = append(r.outcomes, o)
	})
	return r
}

func (r *outcomeRecorder) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

func waitDone(t *testing.T, c *Coordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not reach a terminal outcome")
	}
}

func TestCoordinator(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		surface := &tu.MockSurface{}
		rec := recordOutcomes(bus)

		c := Install(bus, state, surface, "attempt-1", nil)
		events.Emit(bus, LoggedIn{AccessToken: "tok123"})
		waitDone(t, c)
		bus.Wait()

		got := rec.all()
		if len(got) != 1 {
			t.Fatalf("expected one outcome, got %d: %v", len(got), got)
		}
		if got[0].Kind != OutcomeAuthenticated || got[0].AccessToken != "tok123" || got[0].AttemptID != "attempt-1" {
			t.Errorf("unexpected outcome %+v", got[0])
		}
		if got[0].EventName() != "oauth:authenticated" {
			t.Errorf("unexpected signal %s", got[0].EventName())
		}
		if !state.Completed() || state.Failed() || state.ClosedPrematurely() {
			t.Error("expected only the completed flag to be set")
		}
		if surface.Closes() != 1 {
			t.Errorf("expected surface closed once, got %d", surface.Closes())
		}
		if events.Count[Failed](bus) != 0 || events.Count[WindowClosed](bus) != 0 || events.Count[LoggedIn](bus) != 0 {
			t.Error("expected every attempt subscription to be removed")
		}
	})

	t.Run("Failure", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		surface := &tu.MockSurface{}
		rec := recordOutcomes(bus)

		c := Install(bus, state, surface, "attempt-2", nil)
		events.Emit(bus, Failed{Message: "access_denied"})
		waitDone(t, c)
		bus.Wait()

		got := rec.all()
		if len(got) != 1 || got[0].Kind != OutcomeFailed || got[0].Message != "access_denied" {
			t.Fatalf("unexpected outcomes %+v", got)
		}
		if got[0].EventName() != "oauth:failed" {
			t.Errorf("unexpected signal %s", got[0].EventName())
		}
		if !state.Failed() {
			t.Error("expected failed flag")
		}
		if surface.Closes() != 1 {
			t.Errorf("expected surface closed once, got %d", surface.Closes())
		}
	})

	t.Run("Window Closed", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		rec := recordOutcomes(bus)

		c := Install(bus, state, &tu.MockSurface{}, "attempt-3", nil)
		events.Emit(bus, WindowClosed{})
		waitDone(t, c)
		bus.Wait()

		got := rec.all()
		if len(got) != 1 || got[0].Kind != OutcomeCancelled || got[0].Message != WindowClosedMessage {
			t.Fatalf("unexpected outcomes %+v", got)
		}
		if got[0].EventName() != "oauth:failed" {
			t.Errorf("cancellation should be delivered as oauth:failed, got %s", got[0].EventName())
		}
		if !state.ClosedPrematurely() {
			t.Error("expected closed-prematurely flag")
		}
		if c.Winner() != OutcomeCancelled {
			t.Errorf("expected cancelled winner, got %v", c.Winner())
		}
	})

	t.Run("Window Closed For Another Attempt", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		rec := recordOutcomes(bus)

		c := Install(bus, state, &tu.MockSurface{}, "attempt-current", nil)
		events.Emit(bus, WindowClosed{AttemptID: "attempt-previous"})
		bus.Wait()

		if c.Winner() != OutcomePending {
			t.Fatalf("a close for another attempt must not settle this one, got %v", c.Winner())
		}
		if state.ClosedPrematurely() || len(rec.all()) != 0 {
			t.Fatal("a close for another attempt must not notify or flip flags")
		}
		if events.Count[WindowClosed](bus) != 1 {
			t.Fatal("the window subscription should survive a mismatched close")
		}

		events.Emit(bus, WindowClosed{AttemptID: "attempt-current"})
		waitDone(t, c)
		bus.Wait()

		got := rec.all()
		if len(got) != 1 || got[0].Kind != OutcomeCancelled || got[0].AttemptID != "attempt-current" {
			t.Fatalf("unexpected outcomes %+v", got)
		}
		if events.Count[WindowClosed](bus) != 0 {
			t.Error("expected the window subscription to be removed once settled")
		}
	})

	t.Run("Late Events Are Ignored", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		rec := recordOutcomes(bus)

		c := Install(bus, state, nil, "attempt-4", nil)
		events.Emit(bus, LoggedIn{AccessToken: "first"})
		waitDone(t, c)

		events.Emit(bus, WindowClosed{})
		events.Emit(bus, Failed{Message: "late"})
		events.Emit(bus, LoggedIn{AccessToken: "second"})
		bus.Wait()

		got := rec.all()
		if len(got) != 1 || got[0].AccessToken != "first" {
			t.Fatalf("expected only the first outcome, got %+v", got)
		}
		if state.ClosedPrematurely() || state.Failed() {
			t.Error("late events must not flip other flags")
		}
	})

	t.Run("Abort", func(t *testing.T) {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		rec := recordOutcomes(bus)
		surface := &tu.MockSurface{}

		c := Install(bus, state, surface, "attempt-5", nil)
		if !c.Abort() {
			t.Fatal("expected abort to win an untouched attempt")
		}
		if c.Abort() {
			t.Error("second abort should be a no-op")
		}

		events.Emit(bus, LoggedIn{AccessToken: "tok"})
		bus.Wait()

		if len(rec.all()) != 0 {
			t.Errorf("abort must not notify, got %+v", rec.all())
		}
		if !state.Done() {
			t.Error("abort should stop the server loop")
		}
		if surface.Closes() != 1 {
			t.Errorf("expected surface closed once, got %d", surface.Closes())
		}
	})

	t.Run("Abort After Win", func(t *testing.T) {
		bus := events.NewBus(nil)
		c := Install(bus, NewTerminalState(), nil, "attempt-6", nil)
		events.Emit(bus, Failed{Message: "x"})
		waitDone(t, c)

		if c.Abort() {
			t.Error("abort should lose to a handler that already won")
		}
		if c.Outcome().Kind != OutcomeFailed {
			t.Errorf("expected failed outcome, got %v", c.Outcome().Kind)
		}
	})
}

// Every interleaving of the three terminal triggers must produce exactly one notification.
func TestCoordinatorExactlyOnce(t *testing.T) {
	triggers := []func(*events.Bus){
		func(b *events.Bus) { events.Emit(b, LoggedIn{AccessToken: "tok"}) },
		func(b *events.Bus) { events.Emit(b, WindowClosed{}) },
		func(b *events.Bus) { events.Emit(b, Failed{Message: "boom"}) },
	}

	for i := range 300 {
		bus := events.NewBus(nil)
		state := NewTerminalState()
		var notified atomic.Int64
		events.Subscribe(bus, func(Outcome) { notified.Add(1) })

		c := Install(bus, state, &tu.MockSurface{}, "race", nil)

		start := make(chan struct{})
		var wg sync.WaitGroup
		// Success and window-closed always race; every third run adds a failure too.
		fire := triggers[:2]
		if i%3 == 0 {
			fire = triggers
		}
		for _, trigger := range fire {
			wg.Add(1)
			go func(trigger func(*events.Bus)) {
				defer wg.Done()
				<-start
				trigger(bus)
			}(trigger)
		}
		close(start)
		wg.Wait()
		waitDone(t, c)
		bus.Wait()

		if n := notified.Load(); n != 1 {
			t.Fatalf("run %d: expected exactly one notification, got %d", i, n)
		}
		if !state.Done() {
			t.Fatalf("run %d: expected a terminal flag", i)
		}
	}
}
