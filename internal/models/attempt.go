package models

import (
	"fmt"
	"time"
)

// Outcome values stored in login_attempts.outcome.
const (
	OutcomePending       = "pending"
	OutcomeAuthenticated = "authenticated"
	OutcomeFailed        = "failed"
	OutcomeCancelled     = "cancelled"
)

var validOutcomes = map[string]bool{
	OutcomePending:       true,
	OutcomeAuthenticated: true,
	OutcomeFailed:        true,
	OutcomeCancelled:     true,
}

// Attempt is the persisted record of one login attempt. The access token itself is never stored.
type Attempt struct {
	id         string
	sequence   int
	mode       string
	port       int
	outcome    string
	message    string
	startedAt  time.Time
	finishedAt *time.Time
}

// NewAttempt creates a pending attempt started now.
func NewAttempt(id, mode string, port int) *Attempt {
	return &Attempt{
		id:        id,
		mode:      mode,
		port:      port,
		outcome:   OutcomePending,
		startedAt: time.Now().UTC(),
	}
}

func (a *Attempt) ID() string             { return a.id }
func (a *Attempt) Sequence() int          { return a.sequence }
func (a *Attempt) Mode() string           { return a.mode }
func (a *Attempt) Port() int              { return a.port }
func (a *Attempt) Outcome() string        { return a.outcome }
func (a *Attempt) Message() string        { return a.message }
func (a *Attempt) StartedAt() time.Time   { return a.startedAt }
func (a *Attempt) FinishedAt() *time.Time { return a.finishedAt }
func (a *Attempt) CreatedAt() time.Time   { return a.startedAt }

// UpdatedAt is the finish time, or the start time while the attempt is pending.
func (a *Attempt) UpdatedAt() time.Time {
	if a.finishedAt != nil {
		return *a.finishedAt
	}
	return a.startedAt
}

func (a *Attempt) SetID(id string)               { a.id = id }
func (a *Attempt) SetSequence(seq int)           { a.sequence = seq }
func (a *Attempt) SetPort(port int)              { a.port = port }
func (a *Attempt) SetStartedAt(t time.Time)      { a.startedAt = t.UTC() }
func (a *Attempt) SetFinishedAt(t *time.Time)    { a.finishedAt = t }
func (a *Attempt) SetResult(outcome, msg string) { a.outcome, a.message = outcome, msg }

// Finish records the outcome and stamps the finish time.
func (a *Attempt) Finish(outcome, msg string, at time.Time) {
	at = at.UTC()
	a.outcome = outcome
	a.message = msg
	a.finishedAt = &at
}

// Duration is how long the attempt ran, or zero while pending.
func (a *Attempt) Duration() time.Duration {
	if a.finishedAt == nil {
		return 0
	}
	return a.finishedAt.Sub(a.startedAt)
}

func (a *Attempt) Validate() error {
	if a.id == "" {
		return fmt.Errorf("attempt id is required")
	}
	if a.mode == "" {
		return fmt.Errorf("attempt mode is required")
	}
	if !validOutcomes[a.outcome] {
		return fmt.Errorf("invalid outcome %q", a.outcome)
	}
	if a.port < 0 || a.port > 65535 {
		return fmt.Errorf("port %d out of range", a.port)
	}
	return nil
}
