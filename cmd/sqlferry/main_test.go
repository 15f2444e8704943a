package main

import (
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/sqlferry/sqlferry/internal/config"
)

// runWithFlags runs a throwaway app so the check callback sees a
// populated cli.Context.
func runWithFlags(t *testing.T, flags []cli.Flag, args []string, check func(c *cli.Context) error) {
	t.Helper()
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "cmd",
				Flags:  flags,
				Action: check,
			},
		},
	}
	if err := app.Run(append([]string{"sqlferry", "cmd"}, args...)); err != nil {
		t.Fatal(err)
	}
}

func urlFlags(side string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: side},
		&cli.StringFlag{Name: side + "-env"},
	}
}

func TestResolveURLFromFlag(t *testing.T) {
	runWithFlags(t, urlFlags("source"), []string{"--source", "mysql://root@localhost/db"}, func(c *cli.Context) error {
		url, err := resolveURL(c, config.Default(), "source")
		if err != nil {
			t.Fatal(err)
		}
		if url != "mysql://root@localhost/db" {
			t.Errorf("url = %q", url)
		}
		return nil
	})
}

func TestResolveURLFromEnv(t *testing.T) {
	t.Setenv("FERRY_SRC", "postgres://u:p@host/db")
	runWithFlags(t, urlFlags("source"), []string{"--source-env", "FERRY_SRC"}, func(c *cli.Context) error {
		url, err := resolveURL(c, config.Default(), "source")
		if err != nil {
			t.Fatal(err)
		}
		if url != "postgres://u:p@host/db" {
			t.Errorf("url = %q", url)
		}
		return nil
	})
}

func TestResolveURLMissingEnv(t *testing.T) {
	runWithFlags(t, urlFlags("source"), []string{"--source-env", "FERRY_UNSET_VAR"}, func(c *cli.Context) error {
		_, err := resolveURL(c, config.Default(), "source")
		if err == nil {
			t.Fatal("expected error for unset environment variable")
		}
		if !strings.Contains(err.Error(), "FERRY_UNSET_VAR") {
			t.Errorf("error = %q", err)
		}
		return nil
	})
}

func TestResolveURLFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Destination.URL = "sqlite:out.db"
	runWithFlags(t, urlFlags("destination"), nil, func(c *cli.Context) error {
		url, err := resolveURL(c, cfg, "destination")
		if err != nil {
			t.Fatal(err)
		}
		if url != "sqlite:out.db" {
			t.Errorf("url = %q", url)
		}
		return nil
	})
}

func TestResolveURLNothingGiven(t *testing.T) {
	runWithFlags(t, urlFlags("source"), nil, func(c *cli.Context) error {
		_, err := resolveURL(c, config.Default(), "source")
		if err == nil {
			t.Fatal("expected error when no URL is available")
		}
		if !strings.Contains(err.Error(), "--source") {
			t.Errorf("error = %q", err)
		}
		return nil
	})
}

func TestProviderNamePrecedence(t *testing.T) {
	flags := []cli.Flag{&cli.StringFlag{Name: "provider"}}

	// Flag wins over config.
	cfg := config.Default()
	cfg.Provider = "postgres"
	runWithFlags(t, flags, []string{"--provider", "sqlite"}, func(c *cli.Context) error {
		if got := providerName(c, cfg); got != "sqlite" {
			t.Errorf("provider = %q, want sqlite", got)
		}
		return nil
	})

	// Config wins over the built-in default.
	runWithFlags(t, flags, nil, func(c *cli.Context) error {
		if got := providerName(c, cfg); got != "postgres" {
			t.Errorf("provider = %q, want postgres", got)
		}
		return nil
	})

	// Built-in default.
	runWithFlags(t, flags, nil, func(c *cli.Context) error {
		if got := providerName(c, config.Default()); got != "mysql" {
			t.Errorf("provider = %q, want mysql", got)
		}
		return nil
	})
}

func TestTransferOptionsFromFlags(t *testing.T) {
	runWithFlags(t, transferFlags(), []string{
		"--tables", "a, b",
		"--exclude", "c",
		"--schema-only",
		"--batch-rows", "50",
		"--consistent-snapshot",
	}, func(c *cli.Context) error {
		opts := transferOptions(c, config.Default())
		if len(opts.Tables) != 2 || opts.Tables[0] != "a" || opts.Tables[1] != "b" {
			t.Errorf("tables = %v", opts.Tables)
		}
		if len(opts.Exclude) != 1 || opts.Exclude[0] != "c" {
			t.Errorf("exclude = %v", opts.Exclude)
		}
		if !opts.SchemaOnly || opts.DataOnly {
			t.Errorf("only flags = %+v", opts)
		}
		if opts.BatchRows != 50 {
			t.Errorf("batch rows = %d", opts.BatchRows)
		}
		if !opts.ConsistentSnapshot {
			t.Error("consistent snapshot should be set")
		}
		return nil
	})
}

func TestTransferOptionsConfigBatchDefault(t *testing.T) {
	runWithFlags(t, transferFlags(), nil, func(c *cli.Context) error {
		opts := transferOptions(c, config.Default())
		if opts.BatchRows != 1000 {
			t.Errorf("batch rows = %d, want config default 1000", opts.BatchRows)
		}
		return nil
	})
}

func TestDisableConstraintsPrecedence(t *testing.T) {
	flags := []cli.Flag{&cli.BoolFlag{Name: "disable-fk-checks", Value: true}}

	// Config value applies when the flag is not given.
	cfg := config.Default()
	cfg.Transfer.DisableConstraints = false
	runWithFlags(t, flags, nil, func(c *cli.Context) error {
		if disableConstraints(c, cfg) {
			t.Error("disable_constraints: false in config should apply when the flag is unset")
		}
		return nil
	})

	// An explicit flag wins over the config.
	runWithFlags(t, flags, []string{"--disable-fk-checks=true"}, func(c *cli.Context) error {
		if !disableConstraints(c, cfg) {
			t.Error("explicit flag should override the config")
		}
		return nil
	})

	// Built-in default keeps checks disabled during writes.
	runWithFlags(t, flags, nil, func(c *cli.Context) error {
		if !disableConstraints(c, config.Default()) {
			t.Error("built-in default should disable FK checks")
		}
		return nil
	})
}

func TestTransferOptionsValidateWiring(t *testing.T) {
	runWithFlags(t, transferFlags(), []string{"--schema-only", "--data-only"}, func(c *cli.Context) error {
		opts := transferOptions(c, config.Default())
		if err := opts.Validate(); err == nil {
			t.Error("schema-only plus data-only should fail validation")
		}
		return nil
	})
}
