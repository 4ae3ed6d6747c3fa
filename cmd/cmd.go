// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("TWLOGIN_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// loginCommand runs one login attempt and prints the token
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and print an access token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   `Login mode: "implicit" (browser) or "code" (direct exchange for a test user)`,
				Sources: cli.EnvVars(shared.EnvOAuthMode),
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "OAuth client id",
				Sources: cli.EnvVars(shared.EnvClientID),
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "OAuth client secret (code mode)",
				Sources: cli.EnvVars(shared.EnvClientSecret),
			},
			&cli.StringFlag{
				Name:    "user-id",
				Usage:   "Test user id (code mode)",
				Sources: cli.EnvVars(shared.EnvTestUserID),
			},
			&cli.StringFlag{
				Name:    "oauth-url",
				Usage:   "OAuth base URL",
				Sources: cli.EnvVars(shared.EnvOAuthURL),
			},
			&cli.BoolFlag{
				Name:  "no-tui",
				Usage: "Open the browser without the interactive prompt",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the login URL instead of opening a browser",
			},
			&cli.BoolFlag{
				Name:  "skip-validate",
				Usage: "Do not look the token up after logging in",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the prompt owns the terminal",
				Value: "twlogin.log",
			},
		},
		Action: r.Login,
	}
}

// validateCommand looks a token up at the provider
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate an access token and show its owner, scopes and expiry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "token",
				Aliases:  []string{"t"},
				Usage:    "Access token to validate",
				Required: true,
				Sources:  cli.EnvVars("TWITCH_ACCESS_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Validate,
	}
}

// historyCommand lists and prunes recorded login attempts
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded login attempts",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of attempts to show (0 for all)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Only show attempts in this mode",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Only show attempts with this outcome (authenticated, failed, cancelled, pending)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete finished attempts older than a duration",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age cutoff, e.g. 720h",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}

// configCommand manages the configuration file and database
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create the configuration file and initialize the history database",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing configuration file",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration (secrets masked)",
				Action: r.ConfigShow,
			},
		},
	}
}

// serveCallbackCommand runs only the callback server, for debugging redirects
func serveCallbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve-callback",
		Usage: "Run the local callback server until one redirect arrives and print its result",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (0 picks the first free configured port)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.ServeCallback,
	}
}
