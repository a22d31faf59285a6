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

// Package tenantcache guarantees at most one live per-tenant connection
// pool per subdomain per process. Entries are populated lazily on first
// resolution and reused for the life of the process unless explicitly
// cleared.
package tenantcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rentora/rentora/internal/tenant"
)

// Connector constructs a pooled client bound to a tenant database URL
type Connector func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error)

// DefaultConnector builds a pgx pool and verifies reachability
func DefaultConnector(maxConns, minConns int) Connector {
	return func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
		poolConfig, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tenant database config: %w", err)
		}
		poolConfig.MaxConns = int32(maxConns)
		poolConfig.MinConns = int32(minConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create tenant pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping tenant database: %w", err)
		}

		return pool, nil
	}
}

type entry struct {
	pool         *pgxpool.Pool
	record       *tenant.Tenant
	lastAccessed time.Time
}

type inflight struct {
	done   chan struct{}
	pool   *pgxpool.Pool
	record *tenant.Tenant
	err    error
}

// Cache is the process-wide map from subdomain to a live tenant pool.
// The entry is the exclusive owner of its pool; Clear and Invalidate
// release the pool before removing the map entry. The rare write path
// is serialized; concurrent cold lookups for one subdomain share a
// single in-flight construction instead of racing.
type Cache struct {
	store   tenant.Store
	connect Connector

	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*inflight
}

// New creates an empty cache backed by the given registry store
func New(store tenant.Store, connect Connector) *Cache {
	return &Cache{
		store:    store,
		connect:  connect,
		entries:  make(map[string]*entry),
		inflight: make(map[string]*inflight),
	}
}

// Get returns the pooled client for a subdomain, constructing it on
// first access. A cache hit performs no I/O. A miss consults the
// registry; unknown subdomains fail with tenant.ErrTenantNotFound and
// non-active records with tenant.ErrTenantInactive. Construction
// failures are surfaced, never cached as broken entries.
func (c *Cache) Get(ctx context.Context, subdomain string) (*pgxpool.Pool, *tenant.Tenant, error) {
	c.mu.Lock()
	if e, ok := c.entries[subdomain]; ok {
		e.lastAccessed = time.Now()
		c.mu.Unlock()
		return e.pool, e.record, nil
	}
	if call, ok := c.inflight[subdomain]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.pool, call.record, call.err
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	c.inflight[subdomain] = call
	c.mu.Unlock()

	pool, record, err := c.build(ctx, subdomain)

	c.mu.Lock()
	delete(c.inflight, subdomain)
	if err == nil {
		c.entries[subdomain] = &entry{pool: pool, record: record, lastAccessed: time.Now()}
	}
	c.mu.Unlock()

	call.pool, call.record, call.err = pool, record, err
	close(call.done)

	return pool, record, err
}

func (c *Cache) build(ctx context.Context, subdomain string) (*pgxpool.Pool, *tenant.Tenant, error) {
	record, err := c.store.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, nil, err
	}
	if record.Status != tenant.StatusActive {
		return nil, nil, fmt.Errorf("%w: %s is %s", tenant.ErrTenantInactive, subdomain, record.Status)
	}

	pool, err := c.connect(ctx, record.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect tenant %s: %w", subdomain, err)
	}
	return pool, record, nil
}

// Invalidate releases the cached pool for one subdomain and removes the
// entry. Missing entries are a no-op.
func (c *Cache) Invalidate(ctx context.Context, subdomain string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[subdomain]; ok {
		e.pool.Close()
		delete(c.entries, subdomain)
	}
	return nil
}

// Clear releases every cached pool and empties the map. Used for
// graceful shutdown and test teardown.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for subdomain, e := range c.entries {
		e.pool.Close()
		delete(c.entries, subdomain)
	}
	return nil
}

// Len reports the number of live entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
