package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes config.toml from the embedded template and initializes the history database.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil && !cmd.Bool("force"):
		r.logger.Info("config file already exists, keeping it", "path", path)
	case statErr == nil:
		r.logger.Info("overwriting config file with defaults", "path", path)
		if err := shared.SaveConfig(path, shared.DefaultConfig()); err != nil {
			return err
		}
	default:
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
	}

	config, err := shared.ResolveConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Configuration: %s\n", path)
	return r.writePlain("✓ History database: %s\n", config.Database.Path)
}

// ConfigShow prints the effective configuration as TOML with the client secret masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	shown := *r.config
	if shown.OAuth.ClientSecret != "" {
		shown.OAuth.ClientSecret = shared.MaskToken(shown.OAuth.ClientSecret)
	}

	r.writePlain("# %s\n", r.configPath)
	if err := toml.NewEncoder(r.output).Encode(shown); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
