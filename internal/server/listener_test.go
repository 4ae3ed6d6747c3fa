package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/shared"
	tu "github.com/desertthunder/twlogin/internal/testing"
)

const testPoll = 20 * time.Millisecond

func startServer(t *testing.T, ctx context.Context, port int, state *oauth.TerminalState, d Dispatcher) (*CallbackServer, <-chan error) {
	t.Helper()
	srv, err := Bind(ctx, "127.0.0.1", port, state, d, Options{PollInterval: testPoll, Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()
	return srv, errc
}

func waitStopped(t *testing.T, srv *CallbackServer, errc <-chan error, within time.Duration) {
	t.Helper()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(within):
		t.Fatalf("server loop did not stop within %v", within)
	}
	select {
	case <-srv.Done():
	default:
		t.Error("Done should be closed after Run returns")
	}
}

func TestCallbackServer(t *testing.T) {
	t.Run("Serves Until A Flag Flips", func(t *testing.T) {
		state := oauth.NewTerminalState()
		d := &tu.MockDispatcher{}
		srv, errc := startServer(t, context.Background(), 0, state, d)

		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/finish", srv.Port()), nil)
		req.Header.Set(FullURLHeader, srv.RedirectURI()+"#access_token=tok123&scope=read")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}

		select {
		case <-srv.Done():
			t.Fatal("server must keep serving while no flag is set")
		case <-time.After(3 * testPoll):
		}

		state.MarkCompleted()
		waitStopped(t, srv, errc, 2*time.Second)

		if tokens, _ := d.Calls(); len(tokens) != 1 || tokens[0] != "tok123" {
			t.Errorf("expected one dispatched token, got %v", tokens)
		}
	})

	t.Run("Exits Within A Poll Interval", func(t *testing.T) {
		for _, flip := range []func(*oauth.TerminalState) bool{
			(*oauth.TerminalState).MarkCompleted,
			(*oauth.TerminalState).MarkFailed,
			(*oauth.TerminalState).MarkClosedPrematurely,
		} {
			state := oauth.NewTerminalState()
			srv, errc := startServer(t, context.Background(), 0, state, &tu.MockDispatcher{})
			flip(state)
			// one interval plus graceful shutdown slack
			waitStopped(t, srv, errc, testPoll+500*time.Millisecond)
		}
	})

	t.Run("Port Can Be Rebound", func(t *testing.T) {
		port := tu.FreePort(t)
		state := oauth.NewTerminalState()

		srv, errc := startServer(t, context.Background(), port, state, &tu.MockDispatcher{})
		if srv.Port() != port {
			t.Fatalf("expected port %d, got %d", port, srv.Port())
		}
		state.MarkFailed()
		waitStopped(t, srv, errc, 2*time.Second)

		state.Reset()
		again, errc := startServer(t, context.Background(), port, state, &tu.MockDispatcher{})
		state.MarkClosedPrematurely()
		waitStopped(t, again, errc, 2*time.Second)
	})

	t.Run("Bind Failure", func(t *testing.T) {
		port := tu.OccupyPort(t)
		_, err := Bind(context.Background(), "127.0.0.1", port, oauth.NewTerminalState(), &tu.MockDispatcher{}, Options{})
		if !errors.Is(err, shared.ErrBindFailed) {
			t.Fatalf("expected bind failure, got %v", err)
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		srv, errc := startServer(t, ctx, 0, oauth.NewTerminalState(), &tu.MockDispatcher{})
		cancel()
		waitStopped(t, srv, errc, 2*time.Second)
	})

	t.Run("Close Before Run", func(t *testing.T) {
		srv, err := Bind(context.Background(), "", 0, oauth.NewTerminalState(), &tu.MockDispatcher{}, Options{})
		if err != nil {
			t.Fatalf("bind failed: %v", err)
		}
		if err := srv.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
		if srv.RedirectURI() != oauth.RedirectURI(srv.Port()) {
			t.Errorf("unexpected redirect uri %s", srv.RedirectURI())
		}
	})
}

func TestBindFirst(t *testing.T) {
	t.Run("Skips Busy Ports", func(t *testing.T) {
		busy := tu.OccupyPort(t)
		free := tu.FreePort(t)

		srv, err := BindFirst(context.Background(), "127.0.0.1", []int{busy, free}, oauth.NewTerminalState(), &tu.MockDispatcher{}, Options{Logger: log.New(io.Discard)})
		if err != nil {
			t.Fatalf("expected a server, got %v", err)
		}
		defer srv.Close()
		if srv.Port() != free {
			t.Errorf("expected port %d, got %d", free, srv.Port())
		}
	})

	t.Run("All Busy", func(t *testing.T) {
		ports := []int{tu.OccupyPort(t), tu.OccupyPort(t)}
		_, err := BindFirst(context.Background(), "127.0.0.1", ports, oauth.NewTerminalState(), &tu.MockDispatcher{}, Options{Logger: log.New(io.Discard)})
		if !errors.Is(err, shared.ErrNoAvailablePort) {
			t.Fatalf("expected no available port, got %v", err)
		}
	})

	t.Run("No Candidates", func(t *testing.T) {
		_, err := BindFirst(context.Background(), "127.0.0.1", nil, oauth.NewTerminalState(), &tu.MockDispatcher{}, Options{Logger: log.New(io.Discard)})
		if !errors.Is(err, shared.ErrNoAvailablePort) {
			t.Fatalf("expected no available port, got %v", err)
		}
	})
}
