package oauth

import "github.com/desertthunder/twlogin/internal/events"

// WindowClosedMessage is the failure message delivered when the user dismisses the login surface.
const WindowClosedMessage = "Login window closed prematurely"

// LoggedIn is dispatched when a callback carried an access token.
type LoggedIn struct {
	AccessToken string
}

// Failed is dispatched when a callback arrived without a token, or when the attempt failed otherwise.
type Failed struct {
	Message string
}

// WindowClosed is emitted by the host when the user closes the login surface.
//
// AttemptID names the attempt whose surface closed; empty means whichever attempt is live.
type WindowClosed struct {
	AttemptID string
}

func (LoggedIn) EventName() string     { return "event::oauth_logged_in" }
func (Failed) EventName() string       { return "event::oauth_failed" }
func (WindowClosed) EventName() string { return "event::login_window_closed" }

// OutcomeKind tags an [Outcome].
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeAuthenticated
	OutcomeFailed
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Outcome is the single notification the UI layer receives per attempt.
type Outcome struct {
	AttemptID   string
	Kind        OutcomeKind
	AccessToken string
	Message     string
}

// EventName is the UI-facing signal name.
func (o Outcome) EventName() string {
	if o.Kind == OutcomeAuthenticated {
		return "oauth:authenticated"
	}
	return "oauth:failed"
}

// OK reports whether the attempt produced a token.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeAuthenticated
}

// BusDispatcher publishes callback results onto an [events.Bus].
type BusDispatcher struct {
	Bus *events.Bus
}

func (d BusDispatcher) LoggedIn(token string) {
	events.Emit(d.Bus, LoggedIn{AccessToken: token})
}

func (d BusDispatcher) Failed(message string) {
	events.Emit(d.Bus, Failed{Message: message})
}
