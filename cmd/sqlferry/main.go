// Command sqlferry moves relational data between databases and SQL
// dump files across MySQL, PostgreSQL, SQLite, and SQL Server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sqlferry/sqlferry/internal/config"
	"github.com/sqlferry/sqlferry/internal/driver"
	"github.com/sqlferry/sqlferry/internal/dump"
	"github.com/sqlferry/sqlferry/internal/importer"
	"github.com/sqlferry/sqlferry/internal/logging"
	"github.com/sqlferry/sqlferry/internal/migrate"
	"github.com/sqlferry/sqlferry/internal/restore"
	"github.com/sqlferry/sqlferry/internal/transfer"
	"github.com/sqlferry/sqlferry/internal/util"

	_ "github.com/sqlferry/sqlferry/internal/driver/mysql"
	_ "github.com/sqlferry/sqlferry/internal/driver/postgres"
	_ "github.com/sqlferry/sqlferry/internal/driver/sqlite"
	_ "github.com/sqlferry/sqlferry/internal/driver/sqlserver"
)

var version = "dev"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sqlferry",
		Usage:   "Move data between MySQL, PostgreSQL, SQLite, and SQL Server databases",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML defaults file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text|json)",
			},
		},
		Commands: []*cli.Command{
			dumpCommand(),
			restoreCommand(),
			migrateCommand(),
			importCommand(),
		},
	}
}

func providerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "provider",
		Usage: "Database provider (mysql|postgres|sqlite|sqlserver)",
	}
}

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "tables",
			Usage: "Tables to include (comma-separated, default all)",
		},
		&cli.StringFlag{
			Name:  "exclude",
			Usage: "Tables to exclude (comma-separated)",
		},
		&cli.BoolFlag{
			Name:  "schema-only",
			Usage: "Transfer structure only, no data",
		},
		&cli.BoolFlag{
			Name:  "data-only",
			Usage: "Transfer data only, no structure",
		},
		&cli.IntFlag{
			Name:  "batch-rows",
			Usage: "Rows per INSERT batch",
		},
		&cli.BoolFlag{
			Name:  "consistent-snapshot",
			Usage: "Read inside a repeatable-read transaction",
		},
	}
}

func dumpCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source database URL"},
		&cli.StringFlag{Name: "source-env", Usage: "Environment variable holding the source URL"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output file path (.sql or .sql.gz)"},
		providerFlag(),
		&cli.BoolFlag{Name: "gzip", Usage: "Compress output with gzip"},
	}
	flags = append(flags, transferFlags()...)
	return &cli.Command{
		Name:  "dump",
		Usage: "Dump a database to a SQL file",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			url, err := resolveURL(c, cfg, "source")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			logging.Info("Connecting to %s", util.RedactURL(url))
			sess, err := driver.Open(ctx, providerName(c, cfg), url)
			if err != nil {
				return fmt.Errorf("connecting to source: %w", err)
			}
			defer sess.Close()

			opts := dump.Options{
				Transfer: transferOptions(c, cfg),
				Gzip:     c.Bool("gzip"),
			}
			return dump.Run(ctx, sess, c.String("output"), opts)
		},
	}
}

func restoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Restore a database from a SQL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Usage: "Destination database URL"},
			&cli.StringFlag{Name: "destination-env", Usage: "Environment variable holding the destination URL"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "Input file path (.sql or .sql.gz)"},
			providerFlag(),
			&cli.BoolFlag{Name: "disable-fk-checks", Value: true, Usage: "Disable foreign key checks during restore"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			url, err := resolveURL(c, cfg, "destination")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			logging.Info("Connecting to %s", util.RedactURL(url))
			sess, err := driver.Open(ctx, providerName(c, cfg), url)
			if err != nil {
				return fmt.Errorf("connecting to destination: %w", err)
			}
			defer sess.Close()

			return restore.Run(ctx, sess, c.String("input"), restore.Options{
				DisableConstraints: disableConstraints(c, cfg),
			})
		},
	}
}

func migrateCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source database URL"},
		&cli.StringFlag{Name: "source-env", Usage: "Environment variable holding the source URL"},
		&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Usage: "Destination database URL"},
		&cli.StringFlag{Name: "destination-env", Usage: "Environment variable holding the destination URL"},
		providerFlag(),
		&cli.BoolFlag{Name: "disable-fk-checks", Value: true, Usage: "Disable foreign key checks on the destination"},
		&cli.BoolFlag{Name: "skip-errors", Usage: "Skip rows the destination rejects and report them at the end"},
	}
	flags = append(flags, transferFlags()...)
	return &cli.Command{
		Name:  "migrate",
		Usage: "Copy tables directly between two databases of the same engine",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			srcURL, err := resolveURL(c, cfg, "source")
			if err != nil {
				return err
			}
			destURL, err := resolveURL(c, cfg, "destination")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			provider := providerName(c, cfg)
			logging.Info("Connecting to source %s", util.RedactURL(srcURL))
			src, err := driver.Open(ctx, provider, srcURL)
			if err != nil {
				return fmt.Errorf("connecting to source: %w", err)
			}
			defer src.Close()

			logging.Info("Connecting to destination %s", util.RedactURL(destURL))
			dest, err := driver.Open(ctx, provider, destURL)
			if err != nil {
				return fmt.Errorf("connecting to destination: %w", err)
			}
			defer dest.Close()

			opts := transferOptions(c, cfg)
			opts.DisableConstraints = disableConstraints(c, cfg)
			opts.SkipErrors = c.Bool("skip-errors")
			return migrate.Run(ctx, src, dest, opts)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a CSV file into a table, creating it when missing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Usage: "Destination database URL"},
			&cli.StringFlag{Name: "destination-env", Usage: "Environment variable holding the destination URL"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "Input CSV file path"},
			&cli.StringFlag{Name: "table", Aliases: []string{"t"}, Required: true, Usage: "Destination table name"},
			&cli.StringFlag{Name: "columns", Usage: "Column mapping (csv_col:db_col,...)"},
			providerFlag(),
			&cli.IntFlag{Name: "batch-rows", Usage: "Rows per INSERT batch"},
			&cli.BoolFlag{Name: "disable-fk-checks", Usage: "Disable foreign key checks during import"},
			&cli.BoolFlag{Name: "skip-errors", Usage: "Skip rows that fail to parse or insert"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			url, err := resolveURL(c, cfg, "destination")
			if err != nil {
				return err
			}
			mapping, err := importer.ParseColumnMapping(c.String("columns"))
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			logging.Info("Connecting to %s", util.RedactURL(url))
			sess, err := driver.Open(ctx, providerName(c, cfg), url)
			if err != nil {
				return fmt.Errorf("connecting to destination: %w", err)
			}
			defer sess.Close()

			batch := c.Int("batch-rows")
			if batch <= 0 {
				batch = cfg.Transfer.BatchRows
			}
			_, err = importer.Run(ctx, sess, c.String("input"), importer.Options{
				Table:              c.String("table"),
				BatchRows:          batch,
				DisableConstraints: c.Bool("disable-fk-checks"),
				SkipErrors:         c.Bool("skip-errors"),
				ColumnMapping:      mapping,
			})
			return err
		},
	}
}

// setup loads the config file and applies the logging flags.
func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	levelName := cfg.Log.Level
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)
	format := cfg.Log.Format
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	logging.SetFormat(format)
	return cfg, nil
}

// resolveURL finds a connection URL from the flag, its -env variant,
// or the config file, in that order.
func resolveURL(c *cli.Context, cfg *config.Config, side string) (string, error) {
	if url := c.String(side); url != "" {
		return url, nil
	}
	if env := c.String(side + "-env"); env != "" {
		url := os.Getenv(env)
		if url == "" {
			return "", fmt.Errorf("environment variable %s is not set", env)
		}
		return url, nil
	}
	var ep *config.Endpoint
	if side == "source" {
		ep = &cfg.Source
	} else {
		ep = &cfg.Destination
	}
	if url := ep.Resolve(); url != "" {
		return url, nil
	}
	return "", fmt.Errorf("either --%s or --%s-env must be provided", side, side)
}

func providerName(c *cli.Context, cfg *config.Config) string {
	if p := c.String("provider"); p != "" {
		return p
	}
	if cfg.Provider != "" {
		return cfg.Provider
	}
	return "mysql"
}

func transferOptions(c *cli.Context, cfg *config.Config) transfer.Options {
	batch := c.Int("batch-rows")
	if batch <= 0 {
		batch = cfg.Transfer.BatchRows
	}
	opts := transfer.Options{
		Tables:             util.SplitCSV(c.String("tables")),
		Exclude:            util.SplitCSV(c.String("exclude")),
		SchemaOnly:         c.Bool("schema-only"),
		DataOnly:           c.Bool("data-only"),
		BatchRows:          batch,
		ConsistentSnapshot: c.Bool("consistent-snapshot") || cfg.Transfer.ConsistentSnapshot,
	}
	if cfg.Transfer.SkipErrors {
		opts.SkipErrors = true
	}
	return opts
}

// disableConstraints resolves the FK-check toggle for restore and
// migrate: an explicit flag wins, otherwise the config value applies.
func disableConstraints(c *cli.Context, cfg *config.Config) bool {
	if c.IsSet("disable-fk-checks") {
		return c.Bool("disable-fk-checks")
	}
	return cfg.Transfer.DisableConstraints
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Warn("Interrupted, shutting down")
		cancel()
	}()
	return ctx, cancel
}
