package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/twlogin/internal/formatter"
	"github.com/desertthunder/twlogin/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints recorded login attempts, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openHistory(r.config)
	if err != nil {
		return err
	}
	defer db.Close()

	attempts, err := repo.List(map[string]any{
		"mode":    cmd.String("mode"),
		"outcome": cmd.String("outcome"),
		"limit":   int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteHistoryExport(attempts, format, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "attempts", len(attempts))
		return nil
	}

	data, err := formatter.Render(format, attempts)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}
	return r.writePlain("%s", data)
}

// HistoryPrune deletes finished attempts older than --older-than.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidFlag)
	}

	db, repo, err := r.openHistory(r.config)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := repo.Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}

	r.logger.Info("pruned login history", "removed", removed, "older_than", age)
	return r.writePlain("Removed %d attempt(s)\n", removed)
}
