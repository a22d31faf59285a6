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

package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentora/rentora/internal/audit"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockStore) Update(ctx context.Context, id string, fields UpdateFields) (*Tenant, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]*WithMerchant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*WithMerchant), args.Error(1)
}

func (m *mockStore) RefreshSubscriptionStatus(ctx context.Context, merchantID, status string) error {
	args := m.Called(ctx, merchantID, status)
	return args.Error(0)
}

type recordingInvalidator struct {
	subdomains []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, subdomain string) error {
	r.subdomains = append(r.subdomains, subdomain)
	return nil
}

func newTestService(store Store, cache CacheInvalidator) *Service {
	return NewService(store, cache, audit.NewSlogLogger())
}

func TestCreateTenant(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.MatchedBy(func(tn *Tenant) bool {
		return tn.Subdomain == "shop1" && tn.Status == StatusActive
	})).Return(nil)

	svc := newTestService(store, nil)

	created, err := svc.CreateTenant(context.Background(), CreateParams{
		Subdomain:   "  Shop1  ",
		DisplayName: "Shop One",
		MerchantID:  "m-1",
		DatabaseURL: "postgres://shop1:pw@db:5432/shop1_db",
	})
	require.NoError(t, err)

	assert.Equal(t, "shop1", created.Subdomain, "subdomain is trimmed and lowercased")
	assert.Equal(t, StatusActive, created.Status)

	parsed, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	store.AssertExpectations(t)
}

func TestCreateTenantValidation(t *testing.T) {
	cases := []struct {
		name   string
		params CreateParams
	}{
		{
			name: "invalid subdomain characters",
			params: CreateParams{
				Subdomain:   "Shop_1!",
				DisplayName: "Shop",
				DatabaseURL: "postgres://db/shop",
			},
		},
		{
			name: "leading hyphen",
			params: CreateParams{
				Subdomain:   "-shop",
				DisplayName: "Shop",
				DatabaseURL: "postgres://db/shop",
			},
		},
		{
			name: "missing display name",
			params: CreateParams{
				Subdomain:   "shop1",
				DatabaseURL: "postgres://db/shop",
			},
		},
		{
			name: "missing database url",
			params: CreateParams{
				Subdomain:   "shop1",
				DisplayName: "Shop",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(mockStore)
			svc := newTestService(store, nil)

			_, err := svc.CreateTenant(context.Background(), tc.params)
			assert.Error(t, err)
			store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateTenantDuplicateSubdomain(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.Anything).Return(ErrDuplicateSubdomain)

	svc := newTestService(store, nil)

	_, err := svc.CreateTenant(context.Background(), CreateParams{
		Subdomain:   "shop1",
		DisplayName: "Shop One",
		DatabaseURL: "postgres://db/shop1",
	})
	assert.ErrorIs(t, err, ErrDuplicateSubdomain)
}

func TestUpdateTenantInvalidatesCache(t *testing.T) {
	store := new(mockStore)
	name := "New Name"
	store.On("Update", mock.Anything, "t-1", mock.MatchedBy(func(f UpdateFields) bool {
		return f.DisplayName != nil && *f.DisplayName == name
	})).Return(&Tenant{ID: "t-1", Subdomain: "shop1", DisplayName: name}, nil)

	cache := &recordingInvalidator{}
	svc := newTestService(store, cache)

	updated, err := svc.UpdateTenant(context.Background(), "t-1", UpdateParams{DisplayName: &name})
	require.NoError(t, err)

	assert.Equal(t, name, updated.DisplayName)
	assert.Equal(t, []string{"shop1"}, cache.subdomains, "stale pool must be released after update")
	store.AssertExpectations(t)
}

func TestUpdateTenantNoFields(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)

	_, err := svc.UpdateTenant(context.Background(), "t-1", UpdateParams{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateTenantInvalidStatus(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(store, nil)

	bad := "deleted"
	_, err := svc.UpdateTenant(context.Background(), "t-1", UpdateParams{Status: &bad})
	assert.Error(t, err)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateTenantEmptyLogoClearsField(t *testing.T) {
	store := new(mockStore)
	store.On("Update", mock.Anything, "t-1", mock.MatchedBy(func(f UpdateFields) bool {
		return f.LogoURL != nil && *f.LogoURL == ""
	})).Return(&Tenant{ID: "t-1", Subdomain: "shop1"}, nil)

	svc := newTestService(store, nil)

	blank := "   "
	_, err := svc.UpdateTenant(context.Background(), "t-1", UpdateParams{LogoURL: &blank})
	require.NoError(t, err)
	store.AssertExpectations(t)
}
