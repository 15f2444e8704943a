// Package mysql provides the MySQL/MariaDB provider implementation.
// It registers itself with the driver registry on import.
package mysql

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sqlferry/sqlferry/internal/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver for MySQL/MariaDB databases.
type Driver struct{}

// Name returns the primary driver name.
func (d *Driver) Name() string { return "mysql" }

// Aliases returns alternative names for this driver.
func (d *Driver) Aliases() []string { return []string{"mariadb", "maria"} }

// Dialect returns the shared MySQL dialect.
func (d *Driver) Dialect() driver.Dialect { return dialect }

// Open connects and returns a live session.
func (d *Driver) Open(ctx context.Context, rawURL string) (driver.Session, error) {
	return open(ctx, rawURL)
}

// dsnFromURL converts a mysql:// URL into the go-sql-driver DSN form.
// A value without a scheme is assumed to already be a DSN.
func dsnFromURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		return "", fmt.Errorf("url %q names no database", raw)
	}

	userinfo := user
	if pass != "" {
		userinfo += ":" + pass
	}

	params := url.Values{}
	for k, vs := range u.Query() {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	// parseTime surfaces DATE/DATETIME as time.Time instead of raw
	// bytes; without it every temporal value degrades to a string.
	params.Set("parseTime", "true")
	if params.Get("charset") == "" {
		params.Set("charset", "utf8mb4")
	}

	return fmt.Sprintf("%s@tcp(%s:%s)/%s?%s", userinfo, host, port, database, params.Encode()), nil
}
