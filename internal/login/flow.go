package login

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/events"
	"github.com/desertthunder/twlogin/internal/models"
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/server"
	"github.com/desertthunder/twlogin/internal/shared"
	"golang.org/x/oauth2"
)

// Recorder persists attempt history. [repositories.AttemptRepository] implements it.
type Recorder interface {
	Create(attempt *models.Attempt) error
	Update(attempt *models.Attempt) error
}

// Exchanger performs the authorization-code exchange. [oauth.CodeClient] implements it.
type Exchanger interface {
	Exchange(ctx context.Context) (*oauth2.Token, *oauth.CodeResponse, error)
}

// Options configures a [Flow].
type Options struct {
	Config   *shared.Config
	Bus      *events.Bus
	Surface  oauth.Surface
	Logger   *log.Logger
	Recorder Recorder
	// Exchanger defaults to an [oauth.CodeClient] built from Config.
	Exchanger Exchanger
}

// Flow runs login attempts for one session.
type Flow struct {
	cfg       *shared.Config
	bus       *events.Bus
	surface   oauth.Surface
	logger    *log.Logger
	recorder  Recorder
	exchanger Exchanger
	state     *oauth.TerminalState

	mu      sync.Mutex
	current *Attempt
}

// New creates a [Flow]. A nil Bus or Config is replaced with a fresh default.
func New(opts Options) *Flow {
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus(nil)
	}
	exchanger := opts.Exchanger
	if exchanger == nil {
		exchanger = oauth.NewCodeClient(cfg.OAuth, cfg.HTTP.Timeout.Duration)
	}
	return &Flow{
		cfg:       cfg,
		bus:       bus,
		surface:   opts.Surface,
		logger:    shared.WithLogger(opts.Logger, "component", "login"),
		recorder:  opts.Recorder,
		exchanger: exchanger,
		state:     oauth.NewTerminalState(),
	}
}

// Bus returns the bus outcomes are published on.
func (f *Flow) Bus() *events.Bus { return f.bus }

// State returns the session's terminal state.
func (f *Flow) State() *oauth.TerminalState { return f.state }

// Current returns the live attempt, or nil.
func (f *Flow) Current() *Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Start begins an attempt in mode.
//
// It returns [shared.ErrLoginInProgress] while another attempt is live and, in implicit mode,
// [shared.ErrNoAvailablePort] when no candidate port could be bound. In that case nothing was
// opened and no outcome will be published.
func (f *Flow) Start(ctx context.Context, mode oauth.Mode) (*Attempt, error) {
	f.mu.Lock()
	if f.current != nil {
		f.mu.Unlock()
		return nil, shared.ErrLoginInProgress
	}
	attempt := newAttempt(shared.GenerateID(), mode)
	f.current = attempt
	f.state.Reset()
	f.mu.Unlock()

	logger := f.logger.With("attempt", attempt.ID, "mode", mode)

	if mode == oauth.ModeCode {
		f.record(attempt)
		go f.runCode(ctx, attempt, logger)
		return attempt, nil
	}

	if err := f.startImplicit(ctx, attempt, logger); err != nil {
		f.release(attempt)
		return nil, err
	}
	return attempt, nil
}

func (f *Flow) startImplicit(ctx context.Context, attempt *Attempt, logger *log.Logger) error {
	opts := server.Options{
		PollInterval:      f.cfg.Server.PollInterval.Duration,
		RequestsPerSecond: f.cfg.Server.RequestsPerSecond,
		Logger:            logger,
	}
	srv, err := server.BindFirst(ctx, f.cfg.Server.Host, f.cfg.Server.Ports, f.state, oauth.BusDispatcher{Bus: f.bus}, opts)
	if err != nil {
		return err
	}
	attempt.Port = srv.Port()

	endpoints := oauth.Endpoints{BaseURL: f.cfg.OAuth.BaseURL, ClientID: f.cfg.OAuth.ClientID, Scopes: f.cfg.OAuth.Scopes}
	attempt.LoginURL = endpoints.ImplicitURL(attempt.Port)

	f.record(attempt)

	coordinator := oauth.Install(f.bus, f.state, f.surface, attempt.ID, logger)
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error("callback server stopped", "error", err)
		}
	}()
	go f.watch(ctx, attempt, coordinator, srv, logger)

	logger.Info("waiting for login", "port", attempt.Port, "redirect", srv.RedirectURI())

	if f.surface == nil {
		return nil
	}
	if err := f.surface.Open(attempt.LoginURL); err != nil {
		logger.Error("failed to open login surface", "error", err)
		events.Emit(f.bus, oauth.Failed{Message: fmt.Sprintf("failed to open login window: %v", err)})
	}
	return nil
}

// watch waits for the attempt to settle (or ctx to end), then for the server to release its port.
func (f *Flow) watch(ctx context.Context, attempt *Attempt, c *oauth.Coordinator, srv *server.CallbackServer, logger *log.Logger) {
	select {
	case <-c.Done():
	case <-ctx.Done():
		if c.Abort() {
			logger.Warn("login attempt aborted", "error", ctx.Err())
		}
	case <-srv.Done():
		if c.Abort() {
			logger.Warn("callback server exited before the attempt settled")
		}
	}
	<-srv.Done()
	f.finish(attempt, c.Outcome())
}

func (f *Flow) runCode(ctx context.Context, attempt *Attempt, logger *log.Logger) {
	tok, resp, err := f.exchanger.Exchange(ctx)

	outcome := oauth.Outcome{AttemptID: attempt.ID}
	if err != nil {
		logger.Error("code login failed", "error", err)
		f.state.MarkFailed()
		outcome.Kind = oauth.OutcomeFailed
		outcome.Message = fmt.Sprintf("Code login failed: %v", err)
	} else {
		logger.Info("code login succeeded", "token", shared.MaskToken(tok.AccessToken), "scopes", resp.Scope)
		f.state.MarkCompleted()
		outcome.Kind = oauth.OutcomeAuthenticated
		outcome.AccessToken = tok.AccessToken
	}

	events.Emit(f.bus, outcome)
	f.finish(attempt, outcome)
}

// Cancel signals that the user closed the login window. It reports whether an attempt was live.
func (f *Flow) Cancel() bool {
	current := f.Current()
	if current == nil {
		return false
	}
	events.Emit(f.bus, oauth.WindowClosed{AttemptID: current.ID})
	return true
}

func (f *Flow) record(attempt *Attempt) {
	if f.recorder == nil {
		return
	}
	attempt.record = models.NewAttempt(attempt.ID, attempt.Mode.String(), attempt.Port)
	attempt.record.SetStartedAt(attempt.StartedAt)
	if err := f.recorder.Create(attempt.record); err != nil {
		f.logger.Warn("failed to record attempt", "attempt", attempt.ID, "error", err)
		attempt.record = nil
	}
}

func (f *Flow) finish(attempt *Attempt, outcome oauth.Outcome) {
	if f.recorder != nil && attempt.record != nil {
		attempt.record.Finish(outcome.Kind.String(), outcome.Message, time.Now())
		if err := f.recorder.Update(attempt.record); err != nil {
			f.logger.Warn("failed to record attempt outcome", "attempt", attempt.ID, "error", err)
		}
	}

	f.release(attempt)
	attempt.settle(outcome)
}

func (f *Flow) release(attempt *Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == attempt {
		f.current = nil
	}
}

// Attempt is a live or finished login attempt.
type Attempt struct {
	ID        string
	Mode      oauth.Mode
	Port      int
	LoginURL  string
	StartedAt time.Time

	record  *models.Attempt
	outcome oauth.Outcome
	done    chan struct{}
}

func newAttempt(id string, mode oauth.Mode) *Attempt {
	return &Attempt{ID: id, Mode: mode, StartedAt: time.Now(), done: make(chan struct{})}
}

func (a *Attempt) settle(outcome oauth.Outcome) {
	a.outcome = outcome
	close(a.done)
}

// Done is closed once the attempt has settled and its callback port is free again.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt settles or ctx ends.
//
// An attempt that was aborted rather than settled (context cancelled, server gone) reports
// [shared.ErrUserCancelled].
func (a *Attempt) Wait(ctx context.Context) (oauth.Outcome, error) {
	select {
	case <-a.done:
	case <-ctx.Done():
		return oauth.Outcome{}, ctx.Err()
	}

	if a.outcome.Kind == oauth.OutcomeCancelled && a.outcome.Message != oauth.WindowClosedMessage {
		return a.outcome, fmt.Errorf("%w: %s", shared.ErrUserCancelled, a.outcome.Message)
	}
	return a.outcome, nil
}

// Err maps a settled outcome to an error, nil for success.
func Err(o oauth.Outcome) error {
	switch o.Kind {
	case oauth.OutcomeAuthenticated:
		return nil
	case oauth.OutcomeCancelled:
		return shared.ErrUserCancelled
	case oauth.OutcomePending:
		return errors.New("login attempt has not settled")
	default:
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, o.Message)
	}
}
