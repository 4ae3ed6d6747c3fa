package oauth

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/events"
	"github.com/desertthunder/twlogin/internal/shared"
)

const claimAborted int32 = -1

// guard holds a subscription handle that can be taken exactly once.
type guard struct {
	sub atomic.Pointer[events.Subscription]
}

func (g *guard) set(sub *events.Subscription) { g.sub.Store(sub) }

// take returns the handle, or nil when another handler already took it.
func (g *guard) take() *events.Subscription { return g.sub.Swap(nil) }

// Coordinator owns the three subscriptions of a single login attempt. Failure and success are
// one-shot; the window subscription stays until a close for this attempt arrives.
type Coordinator struct {
	bus       *events.Bus
	state     *TerminalState
	surface   Surface
	attemptID string
	logger    *log.Logger

	claim   atomic.Int32
	failure guard
	success guard
	window  guard

	ready   chan struct{}
	done    chan struct{}
	outcome Outcome
}

// Install subscribes the failure, success and window-closed handlers for one attempt.
//
// Handlers block until all three guards are populated, so an event that fires during installation
// still unsubscribes every sibling.
func Install(bus *events.Bus, state *TerminalState, surface Surface, attemptID string, logger *log.Logger) *Coordinator {
	c := &Coordinator{
		bus:       bus,
		state:     state,
		surface:   surface,
		attemptID: attemptID,
		logger:    shared.WithLogger(logger, "attempt", attemptID),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}

	c.failure.set(events.SubscribeOnce(bus, c.onFailed))
	c.success.set(events.SubscribeOnce(bus, c.onLoggedIn))
	c.window.set(events.Subscribe(bus, c.onWindowClosed))
	close(c.ready)

	return c
}

func (c *Coordinator) onFailed(evt Failed) {
	c.settle(OutcomeFailed, &c.failure, func() Outcome {
		c.logger.Warn("oauth failed", "message", evt.Message)
		c.closeSurface()
		c.state.MarkFailed()
		return Outcome{AttemptID: c.attemptID, Kind: OutcomeFailed, Message: evt.Message}
	})
}

func (c *Coordinator) onLoggedIn(evt LoggedIn) {
	c.settle(OutcomeAuthenticated, &c.success, func() Outcome {
		c.state.MarkCompleted()
		c.closeSurface()
		c.logger.Info("oauth flow completed", "token", shared.MaskToken(evt.AccessToken))
		return Outcome{AttemptID: c.attemptID, Kind: OutcomeAuthenticated, AccessToken: evt.AccessToken}
	})
}

func (c *Coordinator) onWindowClosed(evt WindowClosed) {
	if evt.AttemptID != "" && evt.AttemptID != c.attemptID {
		c.logger.Debug("ignoring window close for another attempt", "closed", evt.AttemptID)
		return
	}
	c.settle(OutcomeCancelled, &c.window, func() Outcome {
		c.state.MarkClosedPrematurely()
		c.logger.Warn("login window closed before the flow finished")
		return Outcome{AttemptID: c.attemptID, Kind: OutcomeCancelled, Message: WindowClosedMessage}
	})
}

// settle runs effect and publishes its outcome only if kind is the first claim of the attempt.
func (c *Coordinator) settle(kind OutcomeKind, own *guard, effect func() Outcome) {
	<-c.ready

	if !c.claim.CompareAndSwap(int32(OutcomePending), int32(kind)) {
		c.logger.Debug("ignoring terminal event", "event", kind, "winner", c.Winner())
		return
	}

	own.take()
	c.releaseAll()

	c.outcome = effect()
	events.Emit(c.bus, c.outcome)
	close(c.done)
}

// Abort tears the attempt down without notifying the UI. It reports false when a handler already won.
func (c *Coordinator) Abort() bool {
	<-c.ready

	if !c.claim.CompareAndSwap(int32(OutcomePending), claimAborted) {
		return false
	}

	c.releaseAll()
	c.state.MarkClosedPrematurely()
	c.closeSurface()
	c.outcome = Outcome{AttemptID: c.attemptID, Kind: OutcomeCancelled, Message: "login attempt aborted"}
	close(c.done)
	return true
}

func (c *Coordinator) releaseAll() {
	for _, g := range []*guard{&c.failure, &c.success, &c.window} {
		if sub := g.take(); sub != nil {
			c.bus.Unsubscribe(sub)
		}
	}
}

func (c *Coordinator) closeSurface() {
	if c.surface == nil {
		return
	}
	if err := c.surface.Close(); err != nil {
		c.logger.Error("failed to close login surface", "error", err)
	}
}

// Winner returns the kind of the handler that claimed the attempt, or [OutcomePending].
func (c *Coordinator) Winner() OutcomeKind {
	v := c.claim.Load()
	if v == claimAborted {
		return OutcomeCancelled
	}
	return OutcomeKind(v)
}

// Done is closed once the attempt reached a terminal outcome (or was aborted).
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Outcome returns the published outcome. It is only meaningful after [Coordinator.Done] is closed.
func (c *Coordinator) Outcome() Outcome {
	<-c.done
	return c.outcome
}
