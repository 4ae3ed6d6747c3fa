package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/shared"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 2 * time.Second

// Options configures a [CallbackServer].
type Options struct {
	// PollInterval is how often the loop checks the terminal state. Defaults to [shared.DefaultPollInterval].
	PollInterval      time.Duration
	RequestsPerSecond float64
	Logger            *log.Logger
}

// CallbackServer serves the redirect for a single login attempt.
type CallbackServer struct {
	listener net.Listener
	server   *http.Server
	state    *oauth.TerminalState
	port     int
	poll     time.Duration
	logger   *log.Logger
	done     chan struct{}
}

// Bind listens on host:port. Port 0 picks a free port, which is useful in tests.
func Bind(ctx context.Context, host string, port int, state *oauth.TerminalState, d Dispatcher, opts Options) (*CallbackServer, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrBindFailed, addr, err)
	}

	logger := shared.WithLogger(opts.Logger, "component", "callback", "addr", l.Addr().String())
	poll := opts.PollInterval
	if poll <= 0 {
		poll = shared.DefaultPollInterval
	}

	router := newRouter(d, logger, Logging(logger), NoStore, RateLimit(NewLimiter(opts.RequestsPerSecond)))

	return &CallbackServer{
		listener: l,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
		},
		state:  state,
		port:   l.Addr().(*net.TCPAddr).Port,
		poll:   poll,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// newRouter wires the forwarding page and the finish endpoint. Only GET reaches /finish.
func newRouter(d Dispatcher, logger *log.Logger, middleware ...Middleware) *BasicRouter {
	router := NewBasicRouter()
	router.Use(middleware...)

	finish := NewFinishHandler(d, logger)
	for _, route := range finish.Routes() {
		router.Handle(http.MethodGet, route, finish)
	}
	router.Handler(PageHandler{})
	return router
}

// BindFirst tries ports in order and returns a server for the first one that binds.
//
// When none does it returns an error wrapping [shared.ErrNoAvailablePort].
func BindFirst(ctx context.Context, host string, ports []int, state *oauth.TerminalState, d Dispatcher, opts Options) (*CallbackServer, error) {
	logger := shared.WithLogger(opts.Logger, "component", "callback")
	for _, port := range ports {
		srv, err := Bind(ctx, host, port, state, d, opts)
		if err != nil {
			logger.Warn("could not bind callback port", "port", port, "error", err)
			continue
		}
		return srv, nil
	}

	logger.Error("every candidate port is in use", "ports", ports)
	return nil, fmt.Errorf("%w: tried %v", shared.ErrNoAvailablePort, ports)
}

// Run serves until the terminal state reports an outcome or ctx is cancelled.
//
// The listener is released before Run returns. Errors on individual requests never end the loop.
func (s *CallbackServer) Run(ctx context.Context) error {
	defer close(s.done)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %v", shared.ErrServerStopped, err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				s.logger.Debug("context done, stopping callback server")
			case <-ticker.C:
				if !s.state.Done() {
					continue
				}
				s.logger.Debug("attempt finished, stopping callback server",
					"completed", s.state.Completed(),
					"failed", s.state.Failed(),
					"closed", s.state.ClosedPrematurely(),
				)
			}
			return s.shutdown()
		}
	})

	return g.Wait()
}

func (s *CallbackServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown timed out", "error", err)
		return s.server.Close()
	}
	return nil
}

// Done is closed once [CallbackServer.Run] has returned.
func (s *CallbackServer) Done() <-chan struct{} { return s.done }

// Port is the bound TCP port.
func (s *CallbackServer) Port() int { return s.port }

// RedirectURI is the address registered with the provider for this server.
func (s *CallbackServer) RedirectURI() string { return oauth.RedirectURI(s.port) }

// Close releases the listener of a server whose loop was never started.
func (s *CallbackServer) Close() error {
	return s.listener.Close()
}
