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

package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/rentora/internal/merchant"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
	"github.com/rentora/rentora/internal/tenantcache"
)

type fakeTenantStore struct {
	tenants map[string]*tenant.Tenant
}

func (f *fakeTenantStore) FindBySubdomain(_ context.Context, subdomain string) (*tenant.Tenant, error) {
	t, ok := f.tenants[subdomain]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenantStore) Create(context.Context, *tenant.Tenant) error { return nil }

func (f *fakeTenantStore) Update(context.Context, string, tenant.UpdateFields) (*tenant.Tenant, error) {
	return nil, tenant.ErrTenantNotFound
}

func (f *fakeTenantStore) List(context.Context) ([]*tenant.WithMerchant, error) { return nil, nil }

func (f *fakeTenantStore) RefreshSubscriptionStatus(context.Context, string, string) error {
	return nil
}

type fakeMerchantStore struct {
	merchants map[string]*merchant.Merchant
}

func (f *fakeMerchantStore) Create(context.Context, *merchant.Merchant) error { return nil }

func (f *fakeMerchantStore) GetByID(_ context.Context, id string) (*merchant.Merchant, error) {
	m, ok := f.merchants[id]
	if !ok {
		return nil, merchant.ErrMerchantNotFound
	}
	return m, nil
}

type fakeSubStore struct {
	subs map[string]*subscription.Subscription
}

func (f *fakeSubStore) GetCurrentByMerchant(_ context.Context, merchantID string) (*subscription.Subscription, error) {
	s, ok := f.subs[merchantID]
	if !ok {
		return nil, subscription.ErrNoSubscription
	}
	return s, nil
}

func (f *fakeSubStore) Upsert(context.Context, *subscription.Subscription) error { return nil }

// lazyConnector records the URL it was asked to connect and hands back a
// pool object without dialing.
func lazyConnector(connected *[]string) tenantcache.Connector {
	return func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
		*connected = append(*connected, databaseURL)
		return pgxpool.New(ctx, databaseURL)
	}
}

func newTestResolver(t *testing.T, baseDomain string) (*Resolver, *[]string) {
	t.Helper()

	end := time.Now().Add(30 * 24 * time.Hour)
	store := &fakeTenantStore{tenants: map[string]*tenant.Tenant{
		"shop1": {
			ID:          "t-1",
			Subdomain:   "shop1",
			DatabaseURL: "postgres://shop1:pw@db:5432/shop1_db",
			Status:      tenant.StatusActive,
			MerchantID:  "m-1",
		},
	}}
	merchants := &fakeMerchantStore{merchants: map[string]*merchant.Merchant{
		"m-1": {ID: "m-1", Name: "Shop One Oy"},
	}}
	subs := &fakeSubStore{subs: map[string]*subscription.Subscription{
		"m-1": {
			MerchantID:       "m-1",
			Status:           subscription.StatusActive,
			CurrentPeriodEnd: &end,
		},
	}}

	connected := &[]string{}
	cache := tenantcache.New(store, lazyConnector(connected))
	t.Cleanup(func() { _ = cache.Clear(context.Background()) })

	gate := subscription.NewGate(merchants, subs, nil)
	return New(cache, gate, baseDomain, nil), connected
}

func TestResolveKnownTenant(t *testing.T) {
	r, connected := newTestResolver(t, "example.com")

	res, err := r.Resolve(context.Background(), "shop1.example.com", "")
	require.NoError(t, err)
	require.NotNil(t, res.Pool)

	assert.Equal(t, "t-1", res.Tenant.ID)
	assert.Equal(t, []string{"postgres://shop1:pw@db:5432/shop1_db"}, *connected,
		"pool is built against the tenant's own database")

	// Second request reuses the cached pool.
	res2, err := r.Resolve(context.Background(), "shop1.example.com:443", "")
	require.NoError(t, err)
	assert.Same(t, res.Pool, res2.Pool)
	assert.Len(t, *connected, 1)
}

func TestResolveUnknownTenant(t *testing.T) {
	r, connected := newTestResolver(t, "example.com")

	_, err := r.Resolve(context.Background(), "ghost.example.com", "")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	assert.Empty(t, *connected, "no pool is constructed for unknown subdomains")
}

func TestResolveMissingSubdomain(t *testing.T) {
	r, _ := newTestResolver(t, "example.com")

	for _, host := range []string{"example.com", "127.0.0.1:8080", "localhost"} {
		_, err := r.Resolve(context.Background(), host, "")
		assert.ErrorIs(t, err, ErrSubdomainRequired, host)
	}
}

func TestResolveDeniedSubscription(t *testing.T) {
	connected := &[]string{}
	end := time.Now().Add(-time.Hour)
	store := &fakeTenantStore{tenants: map[string]*tenant.Tenant{
		"stale": {
			ID:          "t-2",
			Subdomain:   "stale",
			DatabaseURL: "postgres://stale:pw@db:5432/stale_db",
			Status:      tenant.StatusActive,
			MerchantID:  "m-2",
		},
	}}
	merchants := &fakeMerchantStore{merchants: map[string]*merchant.Merchant{
		"m-2": {ID: "m-2", Name: "Stale Oy"},
	}}
	subs := &fakeSubStore{subs: map[string]*subscription.Subscription{
		"m-2": {MerchantID: "m-2", Status: subscription.StatusActive, CurrentPeriodEnd: &end},
	}}
	cache := tenantcache.New(store, lazyConnector(connected))
	t.Cleanup(func() { _ = cache.Clear(context.Background()) })
	r := New(cache, subscription.NewGate(merchants, subs, nil), "example.com", nil)

	_, err := r.Resolve(context.Background(), "stale.example.com", "")

	var denial *subscription.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, subscription.CodePeriodEnded, denial.Code)
}

func TestResolvePlatformRoleBypassesGate(t *testing.T) {
	connected := &[]string{}
	store := &fakeTenantStore{tenants: map[string]*tenant.Tenant{
		"shop1": {
			ID:          "t-1",
			Subdomain:   "shop1",
			DatabaseURL: "postgres://shop1:pw@db:5432/shop1_db",
			Status:      tenant.StatusActive,
			MerchantID:  "",
		},
	}}
	cache := tenantcache.New(store, lazyConnector(connected))
	t.Cleanup(func() { _ = cache.Clear(context.Background()) })
	gate := subscription.NewGate(&fakeMerchantStore{}, &fakeSubStore{}, nil)
	r := New(cache, gate, "example.com", nil)

	_, err := r.Resolve(context.Background(), "shop1.example.com", subscription.PlatformRole)
	assert.NoError(t, err)
}

func TestSubdomainFromHost(t *testing.T) {
	cases := []struct {
		name       string
		baseDomain string
		host       string
		want       string
		wantErr    bool
	}{
		{"simple", "example.com", "shop1.example.com", "shop1", false},
		{"uppercase host", "example.com", "SHOP1.Example.COM", "shop1", false},
		{"with port", "example.com", "shop1.example.com:8443", "shop1", false},
		{"trailing dot", "example.com", "shop1.example.com.", "shop1", false},
		{"bare base domain", "example.com", "example.com", "", true},
		{"nested label rejected", "example.com", "a.b.example.com", "", true},
		{"foreign domain", "example.com", "shop1.other.org", "", true},
		{"ipv4", "example.com", "203.0.113.9", "", true},
		{"ipv6 with port", "example.com", "[::1]:8080", "", true},
		{"no base first label", "", "shop1.rentora.io", "shop1", false},
		{"no base www rejected", "", "www.rentora.io", "", true},
		{"no base two labels", "", "rentora.io", "", true},
		{"no base single label", "", "localhost", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(nil, nil, tc.baseDomain, nil)
			got, err := r.SubdomainFromHost(tc.host)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrSubdomainRequired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
