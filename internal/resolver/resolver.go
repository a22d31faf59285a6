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

// Package resolver implements the request-scoped tenant lookup
// contract: host → subdomain → registry → connection cache →
// subscription gate, strictly in that order within a request.
package resolver

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
	"github.com/rentora/rentora/internal/tenantcache"
)

// ErrSubdomainRequired means the request host carried no usable
// subdomain.
var ErrSubdomainRequired = errors.New("subdomain required")

// Resolution is what business handlers receive: a pooled client for
// the tenant's database and the tenant record itself.
type Resolution struct {
	Pool   *pgxpool.Pool
	Tenant *tenant.Tenant
}

// Resolver ties the connection cache and the subscription gate
// together.
type Resolver struct {
	cache       *tenantcache.Cache
	gate        *subscription.Gate
	baseDomain  string
	resolutions metric.Int64Counter
}

// New creates a resolver. resolutions may be nil when metrics are
// disabled.
func New(cache *tenantcache.Cache, gate *subscription.Gate, baseDomain string, resolutions metric.Int64Counter) *Resolver {
	return &Resolver{
		cache:       cache,
		gate:        gate,
		baseDomain:  strings.ToLower(baseDomain),
		resolutions: resolutions,
	}
}

// Resolve runs the full chain for an incoming host. role is the
// caller's platform role, if any; the gate bypasses for the platform
// super-role. Failures are typed: ErrSubdomainRequired,
// tenant.ErrTenantNotFound, tenant.ErrTenantInactive,
// *subscription.Denial, or a wrapped infrastructure error.
func (r *Resolver) Resolve(ctx context.Context, host, role string) (*Resolution, error) {
	subdomain, err := r.SubdomainFromHost(host)
	if err != nil {
		r.count(ctx, "subdomain_missing")
		return nil, err
	}

	pool, record, err := r.cache.Get(ctx, subdomain)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			r.count(ctx, "not_found")
		case errors.Is(err, tenant.ErrTenantInactive):
			r.count(ctx, "inactive")
		default:
			r.count(ctx, "error")
		}
		return nil, err
	}

	if err := r.gate.Check(ctx, record, role); err != nil {
		var denial *subscription.Denial
		if errors.As(err, &denial) {
			r.count(ctx, "denied")
		} else {
			r.count(ctx, "error")
		}
		return nil, err
	}

	r.count(ctx, "resolved")
	return &Resolution{Pool: pool, Tenant: record}, nil
}

// SubdomainFromHost extracts the lowercased tenant subdomain from a
// request host. With a configured base domain, only hosts of the form
// `<sub>.<base>` resolve; without one, the first DNS label is taken.
// The bare base domain, IP literals and single-label hosts carry no
// subdomain.
func (r *Resolver) SubdomainFromHost(host string) (string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil {
		return "", ErrSubdomainRequired
	}

	if r.baseDomain != "" {
		if host == r.baseDomain {
			return "", ErrSubdomainRequired
		}
		sub, ok := strings.CutSuffix(host, "."+r.baseDomain)
		if !ok || sub == "" || strings.Contains(sub, ".") {
			return "", ErrSubdomainRequired
		}
		return sub, nil
	}

	parts := strings.Split(host, ".")
	if len(parts) < 3 || parts[0] == "" || parts[0] == "www" {
		return "", ErrSubdomainRequired
	}
	return parts[0], nil
}

func (r *Resolver) count(ctx context.Context, outcome string) {
	if r.resolutions == nil {
		return
	}
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
