// Copyright 2026 The Rentora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package provision creates isolated tenant databases and applies the
// shared tenant schema. It runs out-of-band at onboarding, never on the
// request hot path, and is the only component that migrates a tenant
// database.
package provision

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed schema/001_tenant_schema.up.sql
var TenantSchema string

var (
	ErrDatabaseExists = errors.New("tenant database already exists")

	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// Config holds provisioner configuration
type Config struct {
	// AdminURL is a connection string with CREATEDB privileges,
	// pointing at the maintenance database of the tenant cluster.
	AdminURL string
	// AllowDrop permits dropping an existing same-named database before
	// creation. Off by default: silently dropping a production tenant's
	// database is data loss, not idempotence. Development reset flows
	// opt in explicitly.
	AllowDrop bool
}

// Provisioner creates tenant databases
type Provisioner struct {
	cfg Config
}

// New creates a provisioner
func New(cfg Config) *Provisioner {
	return &Provisioner{cfg: cfg}
}

// DatabaseName derives the tenant database name deterministically from
// the subdomain: non-alphanumeric runs become underscores, with a fixed
// suffix.
func DatabaseName(subdomain string) string {
	name := nonAlnum.ReplaceAllString(strings.ToLower(subdomain), "_")
	name = strings.Trim(name, "_")
	return name + "_db"
}

// TenantURL builds the tenant connection string from the admin
// credentials and the derived database name.
func TenantURL(adminURL, databaseName string) (string, error) {
	u, err := url.Parse(adminURL)
	if err != nil {
		return "", fmt.Errorf("invalid admin url: %w", err)
	}
	u.Path = "/" + databaseName
	return u.String(), nil
}

// CreateTenantDatabase creates the tenant's isolated database, applies
// the shared tenant schema to it, and returns its connection string.
// Any step failure aborts the whole operation; no partial success is
// silently accepted.
func (p *Provisioner) CreateTenantDatabase(ctx context.Context, subdomain string) (string, error) {
	name := DatabaseName(subdomain)
	if name == "_db" {
		return "", fmt.Errorf("subdomain %q derives an empty database name", subdomain)
	}

	if err := p.createDatabase(ctx, name); err != nil {
		return "", err
	}

	tenantURL, err := TenantURL(p.cfg.AdminURL, name)
	if err != nil {
		return "", err
	}

	if err := applySchema(ctx, tenantURL); err != nil {
		return "", fmt.Errorf("failed to apply tenant schema to %s: %w", name, err)
	}

	return tenantURL, nil
}

// createDatabase runs the drop/create steps on a scoped admin
// connection, released regardless of outcome.
func (p *Provisioner) createDatabase(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, p.cfg.AdminURL)
	if err != nil {
		return fmt.Errorf("failed to connect with admin credentials: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for existing database: %w", err)
	}

	if exists {
		if !p.cfg.AllowDrop {
			return fmt.Errorf("%w: %s", ErrDatabaseExists, name)
		}
		if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s WITH (FORCE)`, quoteIdentifier(name))); err != nil {
			return fmt.Errorf("failed to drop database %s: %w", name, err)
		}
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, quoteIdentifier(name))); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// applySchema migrates the freshly created database. Once started it
// runs on a detached context: a half-applied schema is unsafe to
// interrupt silently, so cancellation surfaces afterwards as a hard
// failure instead of aborting mid-script.
func applySchema(ctx context.Context, tenantURL string) error {
	applyCtx := context.WithoutCancel(ctx)

	conn, err := pgx.Connect(ctx, tenantURL)
	if err != nil {
		return fmt.Errorf("failed to connect to new tenant database: %w", err)
	}
	defer conn.Close(applyCtx)

	if _, err := conn.Exec(applyCtx, TenantSchema); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("schema applied but caller cancelled: %w", err)
	}
	return nil
}

// quoteIdentifier double-quotes a SQL identifier. CREATE/DROP DATABASE
// cannot take bind parameters.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
