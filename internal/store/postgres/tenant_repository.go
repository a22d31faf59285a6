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
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rentora/rentora/internal/tenant"
)

// TenantRepository implements tenant.Store over the registry database
type TenantRepository struct {
	registry *Registry
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(registry *Registry) *TenantRepository {
	return &TenantRepository{registry: registry}
}

const tenantColumns = `id, subdomain, display_name, database_url, status, merchant_id, logo_url, subscription_status, created_at, updated_at`

// FindBySubdomain looks up a tenant by exact subdomain. Callers must
// lowercase; the store does no case folding.
func (r *TenantRepository) FindBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	var t *tenant.Tenant
	err := r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT `+tenantColumns+`
			FROM tenants
			WHERE subdomain = $1
		`, subdomain)

		scanned, err := scanTenant(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				return tenant.ErrTenantNotFound
			}
			return fmt.Errorf("failed to get tenant: %w", err)
		}
		t = scanned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new tenant record
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	return r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		var logoURL sql.NullString
		if t.LogoURL != nil {
			logoURL = sql.NullString{String: *t.LogoURL, Valid: true}
		}
		_, err := conn.Exec(ctx, `
			INSERT INTO tenants (id, subdomain, display_name, database_url, status, merchant_id, logo_url, subscription_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			t.ID, t.Subdomain, t.DisplayName, t.DatabaseURL, t.Status,
			nullIfEmpty(t.MerchantID), logoURL, nullIfEmpty(t.SubscriptionStatus),
			t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return tenant.ErrDuplicateSubdomain
			}
			return fmt.Errorf("failed to insert tenant: %w", err)
		}
		return nil
	})
}

// Update applies a partial update and returns the updated record.
// Date-free by design: subscription period fields live on the
// subscription sub-record, not here.
func (r *TenantRepository) Update(ctx context.Context, id string, fields tenant.UpdateFields) (*tenant.Tenant, error) {
	if fields.Empty() {
		return nil, tenant.ErrNoFieldsToUpdate
	}

	set := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.DisplayName != nil {
		add("display_name", *fields.DisplayName)
	}
	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.DatabaseURL != nil {
		add("database_url", *fields.DatabaseURL)
	}
	if fields.LogoURL != nil {
		// Empty string means clear: stored as NULL, never literally
		if *fields.LogoURL == "" {
			add("logo_url", nil)
		} else {
			add("logo_url", *fields.LogoURL)
		}
	}
	if fields.SubscriptionStatus != nil {
		add("subscription_status", *fields.SubscriptionStatus)
	}
	add("updated_at", fields.UpdatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE tenants SET %s
		WHERE id = $%d
		RETURNING `+tenantColumns,
		strings.Join(set, ", "), len(args))

	var t *tenant.Tenant
	err := r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, query, args...)
		scanned, err := scanTenant(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				return tenant.ErrTenantNotFound
			}
			return fmt.Errorf("failed to update tenant: %w", err)
		}
		t = scanned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns every tenant newest-first, joined with owning-merchant
// display fields.
func (r *TenantRepository) List(ctx context.Context) ([]*tenant.WithMerchant, error) {
	var tenants []*tenant.WithMerchant
	err := r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT t.id, t.subdomain, t.display_name, t.database_url, t.status,
				t.merchant_id, t.logo_url, t.subscription_status, t.created_at, t.updated_at,
				COALESCE(m.name, ''), COALESCE(m.email, '')
			FROM tenants t
			LEFT JOIN merchants m ON m.id = t.merchant_id
			ORDER BY t.created_at DESC
		`)
		if err != nil {
			return fmt.Errorf("failed to list tenants: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var tm tenant.WithMerchant
			var merchantID, subscriptionStatus sql.NullString
			var logoURL sql.NullString
			if err := rows.Scan(
				&tm.ID, &tm.Subdomain, &tm.DisplayName, &tm.DatabaseURL, &tm.Status,
				&merchantID, &logoURL, &subscriptionStatus, &tm.CreatedAt, &tm.UpdatedAt,
				&tm.MerchantName, &tm.MerchantEmail,
			); err != nil {
				return fmt.Errorf("failed to scan tenant: %w", err)
			}
			tm.MerchantID = merchantID.String
			tm.SubscriptionStatus = subscriptionStatus.String
			if logoURL.Valid {
				tm.LogoURL = &logoURL.String
			}
			tenants = append(tenants, &tm)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// RefreshSubscriptionStatus rewrites the denormalized display field for
// all tenants owned by the merchant.
func (r *TenantRepository) RefreshSubscriptionStatus(ctx context.Context, merchantID, status string) error {
	return r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE tenants SET subscription_status = $1, updated_at = NOW()
			WHERE merchant_id = $2
		`, status, merchantID)
		if err != nil {
			return fmt.Errorf("failed to refresh subscription status: %w", err)
		}
		return nil
	})
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var merchantID, subscriptionStatus, logoURL sql.NullString
	err := row.Scan(
		&t.ID, &t.Subdomain, &t.DisplayName, &t.DatabaseURL, &t.Status,
		&merchantID, &logoURL, &subscriptionStatus, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.MerchantID = merchantID.String
	t.SubscriptionStatus = subscriptionStatus.String
	if logoURL.Valid {
		t.LogoURL = &logoURL.String
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
