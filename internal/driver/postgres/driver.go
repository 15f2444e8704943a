// Package postgres provides the PostgreSQL provider implementation.
// It registers itself with the driver registry on import.
package postgres

import (
	"context"

	"github.com/sqlferry/sqlferry/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for PostgreSQL databases.
type Driver struct{}

// Name returns the primary driver name.
func (d *Driver) Name() string { return "postgres" }

// Aliases returns alternative names for this driver.
func (d *Driver) Aliases() []string { return []string{"postgresql", "pg"} }

// Dialect returns the shared PostgreSQL dialect.
func (d *Driver) Dialect() driver.Dialect { return dialect }

// Open connects and returns a live session.
func (d *Driver) Open(ctx context.Context, url string) (driver.Session, error) {
	return open(ctx, url)
}
