package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/login"
	"github.com/desertthunder/twlogin/internal/repositories"
	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// Before resolves the configuration file and environment before any command runs.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	config, err := shared.ResolveConfig(r.configPath)
	if err != nil {
		return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.config = config
	r.logger.Debug("configuration resolved", "path", r.configPath, "mode", config.OAuth.Mode)

	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, validateCommand, historyCommand, configCommand, serveCallbackCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// client returns the injected HTTP client, or one bounded by the configured timeout.
func (r *Runner) client(cfg *shared.Config) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	return &http.Client{Timeout: cfg.HTTP.Timeout.Duration}
}

// openHistory opens the attempt history database. Callers must close the returned db.
func (r *Runner) openHistory(cfg *shared.Config) (*sql.DB, *repositories.AttemptRepository, error) {
	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, repositories.NewAttemptRepository(db), nil
}

// recorder is [Runner.openHistory] for the login path, where history is optional.
func (r *Runner) recorder(cfg *shared.Config) (login.Recorder, func()) {
	if cfg.Database.Path == "" {
		return nil, func() {}
	}
	db, repo, err := r.openHistory(cfg)
	if err != nil {
		r.logger.Warn("attempt history disabled", "error", err)
		return nil, func() {}
	}
	return repo, func() { db.Close() }
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
