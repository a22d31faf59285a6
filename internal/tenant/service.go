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
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentora/rentora/internal/audit"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// CacheInvalidator releases a cached tenant connection. The connection
// cache implements this; updates that may change the database URL or
// status must not leave a stale pool behind.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, subdomain string) error
}

// Service provides tenant registry business logic
type Service struct {
	store       Store
	cache       CacheInvalidator
	auditLogger audit.Logger
}

// NewService creates a new tenant service. cache may be nil when no
// connection cache is attached (e.g. the onboarding CLI).
func NewService(store Store, cache CacheInvalidator, auditLogger audit.Logger) *Service {
	return &Service{
		store:       store,
		cache:       cache,
		auditLogger: auditLogger,
	}
}

// CreateParams holds the fields required to register a tenant.
type CreateParams struct {
	Subdomain   string
	DisplayName string
	MerchantID  string
	DatabaseURL string
}

// CreateTenant registers a new tenant in the registry. The identifier
// is generated client-side (UUIDv7: timestamp plus random suffix) so it
// is stable before the insert commits.
func (s *Service) CreateTenant(ctx context.Context, p CreateParams) (*Tenant, error) {
	subdomain := strings.ToLower(strings.TrimSpace(p.Subdomain))
	if !subdomainPattern.MatchString(subdomain) {
		return nil, fmt.Errorf("invalid subdomain %q", p.Subdomain)
	}
	if p.DisplayName == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if p.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant id: %w", err)
	}

	now := time.Now()
	t := &Tenant{
		ID:          id.String(),
		Subdomain:   subdomain,
		DisplayName: p.DisplayName,
		DatabaseURL: p.DatabaseURL,
		Status:      StatusActive,
		MerchantID:  p.MerchantID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeTenantCreated,
		TenantID:   t.ID,
		Subdomain:  t.Subdomain,
		MerchantID: t.MerchantID,
	})

	return t, nil
}

// UpdateParams holds a partial tenant update as received from the admin
// API. Optional URL fields arriving as empty strings are stored as NULL.
type UpdateParams struct {
	DisplayName        *string
	Status             *string
	DatabaseURL        *string
	LogoURL            *string
	SubscriptionStatus *string
}

// UpdateTenant applies a partial update and invalidates any cached
// connection for the tenant's subdomain.
func (s *Service) UpdateTenant(ctx context.Context, id string, p UpdateParams) (*Tenant, error) {
	fields := UpdateFields{
		DisplayName:        p.DisplayName,
		Status:             p.Status,
		DatabaseURL:        p.DatabaseURL,
		LogoURL:            normalizeOptionalURL(p.LogoURL),
		SubscriptionStatus: p.SubscriptionStatus,
		UpdatedAt:          time.Now(),
	}
	if fields.Empty() {
		return nil, ErrNoFieldsToUpdate
	}
	if fields.Status != nil {
		switch *fields.Status {
		case StatusActive, StatusInactive, StatusSuspended:
		default:
			return nil, fmt.Errorf("invalid status %q", *fields.Status)
		}
	}

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, updated.Subdomain); err != nil {
			return nil, fmt.Errorf("failed to invalidate tenant cache: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeTenantUpdated,
		TenantID:  updated.ID,
		Subdomain: updated.Subdomain,
	})

	return updated, nil
}

// ListTenants returns all tenants newest-first with owning-merchant
// display fields.
func (s *Service) ListTenants(ctx context.Context) ([]*WithMerchant, error) {
	return s.store.List(ctx)
}

// GetBySubdomain looks up a single tenant record.
func (s *Service) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return s.store.FindBySubdomain(ctx, subdomain)
}

// normalizeOptionalURL maps a present-but-empty value to an explicit
// NULL marker so the store never persists an empty string literally.
func normalizeOptionalURL(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		empty := ""
		return &empty
	}
	return &trimmed
}
