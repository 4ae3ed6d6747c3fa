package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/desertthunder/twlogin/internal/formatter"
	"github.com/desertthunder/twlogin/internal/login"
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/desertthunder/twlogin/internal/ui"
	"github.com/urfave/cli/v3"
)

// expiryWarning is how close to expiry a freshly issued token has to be before login warns.
const expiryWarning = time.Hour

type loginResult struct {
	AttemptID   string           `json:"attempt_id"`
	Mode        string           `json:"mode"`
	Port        int              `json:"port,omitempty"`
	AccessToken string           `json:"access_token"`
	Token       *oauth.TokenInfo `json:"token_info,omitempty"`
}

// urlPrinter is the login surface for --no-browser without the prompt.
type urlPrinter struct{ w io.Writer }

func (p urlPrinter) Open(loginURL string) error {
	_, err := fmt.Fprintf(p.w, "Open this URL to log in:\n\n  %s\n\n", loginURL)
	return err
}

func (urlPrinter) Close() error { return nil }

// loginConfig applies login flags over the resolved configuration.
//
// An empty value, which is how an exported but blank TWITCH_* variable arrives, keeps the file's value.
func (r *Runner) loginConfig(cmd *cli.Command) (*shared.Config, error) {
	cfg := *r.config
	cfg.OAuth.Scopes = append([]string(nil), r.config.OAuth.Scopes...)
	cfg.Server.Ports = append([]int(nil), r.config.Server.Ports...)

	for flag, dst := range map[string]*string{
		"mode":          &cfg.OAuth.Mode,
		"client-id":     &cfg.OAuth.ClientID,
		"client-secret": &cfg.OAuth.ClientSecret,
		"user-id":       &cfg.OAuth.TestUserID,
		"oauth-url":     &cfg.OAuth.BaseURL,
	} {
		if v := cmd.String(flag); cmd.IsSet(flag) && v != "" {
			*dst = v
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Login runs one login attempt and prints the resulting access token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.loginConfig(cmd)
	if err != nil {
		return err
	}
	mode := oauth.ParseMode(cfg.OAuth.Mode)

	history, closeHistory := r.recorder(cfg)
	defer closeHistory()

	exchanger := oauth.NewCodeClient(cfg.OAuth, cfg.HTTP.Timeout.Duration)
	exchanger.HTTPClient = r.client(cfg)

	var (
		flow    *login.Flow
		prompt  *ui.Prompt
		surface oauth.Surface
		logger  = r.logger
	)
	switch {
	case mode == oauth.ModeCode:
	case cmd.Bool("no-tui") && cmd.Bool("no-browser"):
		surface = urlPrinter{w: os.Stderr}
	case cmd.Bool("no-tui"):
		surface = ui.BrowserSurface{}
	default:
		if fileLogger, err := shared.NewFileLogger(cmd.String("log-file")); err != nil {
			r.logger.Warn("logging to stderr while the prompt is open", "error", err)
		} else {
			fileLogger.SetLevel(r.logger.GetLevel())
			logger = fileLogger
		}
		prompt = ui.NewPrompt(ui.PromptOptions{
			OnDismiss: func() { flow.Cancel() },
			NoBrowser: cmd.Bool("no-browser"),
			Logger:    logger,
		})
		surface = prompt
	}

	flow = login.New(login.Options{
		Config:    cfg,
		Surface:   surface,
		Logger:    logger,
		Recorder:  history,
		Exchanger: exchanger,
	})

	attempt, err := flow.Start(ctx, mode)
	if err != nil {
		return err
	}

	outcome, err := attempt.Wait(context.WithoutCancel(ctx))
	if prompt != nil {
		prompt.Close()
		prompt.Wait()
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil && !outcome.OK() {
		return shared.ErrUserCancelled
	}
	if err := login.Err(outcome); err != nil {
		return err
	}

	r.logger.Info("login succeeded", "attempt", attempt.ID, "token", shared.MaskToken(outcome.AccessToken))

	result := loginResult{AttemptID: attempt.ID, Mode: mode.String(), Port: attempt.Port, AccessToken: outcome.AccessToken}
	if !cmd.Bool("skip-validate") {
		result.Token = r.lookupToken(ctx, cfg, outcome.AccessToken)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("%s\n\n", ui.Success("✓ Logged in"))
	if result.Token != nil {
		now := time.Now()
		r.writePlain("%s", formatter.TokenInfoToText(result.Token, now, expiryWarning))
		if result.Token.ExpiringWithin(now, expiryWarning) {
			r.logger.Warn("token expires soon", "expires_at", result.Token.ExpiresAt)
		}
		r.writePlain("\n")
	}
	return r.writePlain("Access token: %s\n", outcome.AccessToken)
}

// lookupToken validates a new token for display. Failures are logged, not returned.
func (r *Runner) lookupToken(ctx context.Context, cfg *shared.Config, token string) *oauth.TokenInfo {
	validator := oauth.NewValidator(cfg.OAuth.BaseURL, cfg.HTTP.Timeout.Duration)
	validator.Base = r.client(cfg)

	info, err := validator.Validate(ctx, token)
	if err != nil {
		r.logger.Warn("could not validate new token", "error", err)
		return nil
	}
	return info
}

// Validate looks a token up at the provider and prints its owner, scopes and expiry.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	validator := oauth.NewValidator(cfg.OAuth.BaseURL, cfg.HTTP.Timeout.Duration)
	validator.Base = r.client(cfg)

	token := cmd.String("token")
	r.logger.Debug("validating token", "token", shared.MaskToken(token))

	info, err := validator.Validate(ctx, token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	r.writePlainHeader("Token")
	return r.writePlain("%s", formatter.TokenInfoToText(info, time.Now(), expiryWarning))
}
