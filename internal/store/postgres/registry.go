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

package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/001_registry_schema.up.sql
var RegistrySchema string

const uniqueViolation = "23505"

// Registry opens short-lived scoped connections against the registry
// (main) database. The registry is consulted once per cache miss, not
// once per request; each connection is released on every exit path
// including cancellation.
type Registry struct {
	url string
}

// NewRegistry creates a registry handle for the given connection string
func NewRegistry(databaseURL string) *Registry {
	return &Registry{url: databaseURL}
}

// withConn runs fn with a freshly opened connection and closes it on
// all exit paths.
func (r *Registry) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to registry: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))
	return fn(conn)
}

// Migrate applies the registry schema
func (r *Registry) Migrate(ctx context.Context) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, RegistrySchema); err != nil {
			return fmt.Errorf("failed to apply registry schema: %w", err)
		}
		return nil
	})
}

// isUniqueViolation reports whether err is a duplicate-key error
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
