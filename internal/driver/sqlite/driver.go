// Package sqlite provides the SQLite provider implementation, backed
// by the pure-Go modernc.org/sqlite driver. It registers itself with
// the driver registry on import.
package sqlite

import (
	"context"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for SQLite databases.
type Driver struct{}

// Name returns the primary driver name.
func (d *Driver) Name() string { return "sqlite" }

// Aliases returns alternative names for this driver.
func (d *Driver) Aliases() []string { return []string{"sqlite3"} }

// Dialect returns the shared SQLite dialect.
func (d *Driver) Dialect() driver.Dialect { return dialect }

// Open connects and returns a live session.
func (d *Driver) Open(ctx context.Context, url string) (driver.Session, error) {
	return open(ctx, pathFromURL(url))
}

// pathFromURL accepts sqlite://path, sqlite:path, file: URIs, or a
// plain filesystem path.
func pathFromURL(raw string) string {
	if strings.HasPrefix(raw, "sqlite://") {
		return strings.TrimPrefix(raw, "sqlite://")
	}
	if strings.HasPrefix(raw, "sqlite:") {
		return strings.TrimPrefix(raw, "sqlite:")
	}
	return raw
}
