package main

import (
	"context"
	"errors"

	"github.com/desertthunder/twlogin/internal/events"
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/server"
	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

type callbackResult struct {
	AttemptID   string `json:"attempt_id"`
	Port        int    `json:"port"`
	Outcome     string `json:"outcome"`
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ServeCallback runs only the callback server until one redirect settles it, without opening a
// browser. Useful for checking a redirect URI registration by hand.
func (r *Runner) ServeCallback(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	ports := cfg.Server.Ports
	if p := int(cmd.Int("port")); p > 0 {
		ports = []int{p}
	}
	if len(ports) == 0 {
		return errors.Join(shared.ErrMissingArgument, errors.New("--port or server.ports is required"))
	}

	bus := events.NewBus(r.logger)
	state := oauth.NewTerminalState()
	srv, err := server.BindFirst(ctx, cfg.Server.Host, ports, state, oauth.BusDispatcher{Bus: bus}, server.Options{
		PollInterval:      cfg.Server.PollInterval.Duration,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Logger:            r.logger,
	})
	if err != nil {
		return err
	}

	id := shared.GenerateID()
	coordinator := oauth.Install(bus, state, nil, id, r.logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	r.writePlain("Listening for redirects on %s\n", srv.RedirectURI())
	if cfg.OAuth.ClientID != "" {
		endpoints := oauth.Endpoints{BaseURL: cfg.OAuth.BaseURL, ClientID: cfg.OAuth.ClientID, Scopes: cfg.OAuth.Scopes}
		r.writePlain("Login URL: %s\n", endpoints.ImplicitURL(srv.Port()))
	}

	select {
	case <-coordinator.Done():
	case <-ctx.Done():
		coordinator.Abort()
	case <-srv.Done():
		coordinator.Abort()
	}
	if err := <-errc; err != nil {
		r.logger.Error("callback server stopped", "error", err)
	}
	bus.Wait()

	outcome := coordinator.Outcome()
	result := callbackResult{
		AttemptID:   id,
		Port:        srv.Port(),
		Outcome:     outcome.Kind.String(),
		AccessToken: outcome.AccessToken,
		Message:     outcome.Message,
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	} else {
		r.writePlain("Outcome: %s\n", result.Outcome)
		if result.Message != "" {
			r.writePlain("Message: %s\n", result.Message)
		}
		if result.AccessToken != "" {
			r.writePlain("Access token: %s\n", result.AccessToken)
		}
	}

	if outcome.Kind == oauth.OutcomeCancelled && ctx.Err() != nil {
		return shared.ErrUserCancelled
	}
	return nil
}
