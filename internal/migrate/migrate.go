// Package migrate copies tables directly between two live databases
// speaking the same dialect.
package migrate

import (
	"context"
	"fmt"

	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/logging"
	"github.com/sqlferry/sqlferry/internal/transfer"
)

// Run copies the selected tables from src into dest. Both sessions
// must speak the same dialect; cross-engine copies need a dump plus a
// hand-edited restore.
func Run(ctx context.Context, src, dest driver.Session, opts transfer.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	srcName := src.Dialect().Name()
	destName := dest.Dialect().Name()
	if srcName != destName {
		return fmt.Errorf("cross-engine migration from %s to %s is not supported", srcName, destName)
	}

	if opts.DisableConstraints {
		logging.Info("Disabling foreign key checks on destination")
		if err := dest.DisableConstraints(ctx); err != nil {
			return fmt.Errorf("disabling constraints: %w", err)
		}
	}

	results, err := transfer.Run(ctx, src, transfer.NewSessionDest(dest), opts)
	if err != nil {
		return err
	}

	if opts.DisableConstraints {
		logging.Info("Re-enabling foreign key checks on destination")
		if err := dest.EnableConstraints(ctx); err != nil {
			return fmt.Errorf("re-enabling constraints: %w", err)
		}
	}

	if err := src.Commit(ctx); err != nil {
		return fmt.Errorf("committing source: %w", err)
	}
	if err := dest.Commit(ctx); err != nil {
		return fmt.Errorf("committing destination: %w", err)
	}

	transfer.Report(results)
	return nil
}
