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

	"github.com/jackc/pgx/v5"
	"github.com/rentora/rentora/internal/subscription"
)

// SubscriptionRepository implements subscription.Store over the
// registry database
type SubscriptionRepository struct {
	registry *Registry
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(registry *Registry) *SubscriptionRepository {
	return &SubscriptionRepository{registry: registry}
}

// GetCurrentByMerchant returns the merchant's current subscription
// sub-record. The gate calls this fresh on every check.
func (r *SubscriptionRepository) GetCurrentByMerchant(ctx context.Context, merchantID string) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		var periodStart, periodEnd, trialEnd sql.NullTime
		err := conn.QueryRow(ctx, `
			SELECT id, merchant_id, plan, status, current_period_start, current_period_end, trial_ends_at, created_at, updated_at
			FROM subscriptions
			WHERE merchant_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, merchantID).Scan(
			&s.ID, &s.MerchantID, &s.Plan, &s.Status,
			&periodStart, &periodEnd, &trialEnd,
			&s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			if err == pgx.ErrNoRows {
				return subscription.ErrNoSubscription
			}
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		if periodStart.Valid {
			s.CurrentPeriodStart = &periodStart.Time
		}
		if periodEnd.Valid {
			s.CurrentPeriodEnd = &periodEnd.Time
		}
		if trialEnd.Valid {
			s.TrialEndsAt = &trialEnd.Time
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or replaces the merchant's current subscription
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	return r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		var periodStart, periodEnd, trialEnd sql.NullTime
		if sub.CurrentPeriodStart != nil {
			periodStart = sql.NullTime{Time: *sub.CurrentPeriodStart, Valid: true}
		}
		if sub.CurrentPeriodEnd != nil {
			periodEnd = sql.NullTime{Time: *sub.CurrentPeriodEnd, Valid: true}
		}
		if sub.TrialEndsAt != nil {
			trialEnd = sql.NullTime{Time: *sub.TrialEndsAt, Valid: true}
		}

		_, err := conn.Exec(ctx, `
			INSERT INTO subscriptions (id, merchant_id, plan, status, current_period_start, current_period_end, trial_ends_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (merchant_id) DO UPDATE SET
				plan = EXCLUDED.plan,
				status = EXCLUDED.status,
				current_period_start = EXCLUDED.current_period_start,
				current_period_end = EXCLUDED.current_period_end,
				trial_ends_at = EXCLUDED.trial_ends_at,
				updated_at = EXCLUDED.updated_at
		`,
			sub.ID, sub.MerchantID, sub.Plan, sub.Status,
			periodStart, periodEnd, trialEnd,
			sub.CreatedAt, sub.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}
		return nil
	})
}
