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

// Package billing syncs Stripe subscription events onto the registry's
// subscription sub-records. The sub-record stays the single source of
// truth for gating; the denormalized tenant-side status is refreshed as
// a display cache on every write.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/rentora/rentora/internal/audit"
	"github.com/rentora/rentora/internal/observability/logger"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
)

// Service applies billing events to the registry
type Service struct {
	subs        subscription.Store
	tenants     tenant.Store
	auditLogger audit.Logger
}

// NewService creates a billing service
func NewService(subs subscription.Store, tenants tenant.Store, auditLogger audit.Logger) *Service {
	return &Service{subs: subs, tenants: tenants, auditLogger: auditLogger}
}

// subscriptionPayload is the slice of Stripe's subscription object this
// service needs. Decoded from the raw event body rather than the SDK's
// full struct so sync survives upstream API-version field moves.
type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialEnd           int64             `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
	Plan               struct {
		Nickname string `json:"nickname"`
	} `json:"plan"`
}

// Process applies a verified Stripe event. Unhandled event types are
// logged and skipped, not errors.
func (s *Service) Process(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		slog.DebugContext(ctx, "ignoring billing event", slog.String("event_type", string(event.Type)))
		return nil
	}

	var payload subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("failed to decode subscription event: %w", err)
	}

	merchantID := payload.Metadata["merchant_id"]
	if merchantID == "" {
		return fmt.Errorf("subscription %s carries no merchant_id metadata", payload.ID)
	}

	status := MapStatus(string(event.Type), payload.Status)
	now := time.Now()
	sub := &subscription.Subscription{
		ID:         payload.ID,
		MerchantID: merchantID,
		Plan:       payload.Plan.Nickname,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if payload.CurrentPeriodStart > 0 {
		t := time.Unix(payload.CurrentPeriodStart, 0).UTC()
		sub.CurrentPeriodStart = &t
	}
	if payload.CurrentPeriodEnd > 0 {
		t := time.Unix(payload.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &t
	}
	if payload.TrialEnd > 0 {
		t := time.Unix(payload.TrialEnd, 0).UTC()
		sub.TrialEndsAt = &t
	}

	if err := s.subs.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to sync subscription for merchant %s: %w", merchantID, err)
	}

	// Write-through refresh of the denormalized display field. Gating
	// never reads it, so a failure here is logged, not fatal.
	if err := s.tenants.RefreshSubscriptionStatus(ctx, merchantID, status); err != nil {
		slog.WarnContext(ctx, "failed to refresh denormalized subscription status",
			logger.MerchantID(merchantID), logger.Error(err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeSubscriptionSynced,
		MerchantID: merchantID,
		Metadata: map[string]any{
			"stripe_subscription_id": payload.ID,
			"status":                 status,
			"event_type":             string(event.Type),
		},
	})

	return nil
}

// MapStatus normalizes a Stripe subscription status to the registry's
// vocabulary. A deleted event is cancelled regardless of the label.
func MapStatus(eventType, stripeStatus string) string {
	if eventType == "customer.subscription.deleted" {
		return subscription.StatusCancelled
	}
	switch stripeStatus {
	case "trialing":
		return subscription.StatusTrial
	case "active":
		return subscription.StatusActive
	case "past_due":
		return subscription.StatusPastDue
	case "canceled":
		return subscription.StatusCancelled
	case "paused":
		return subscription.StatusPaused
	case "unpaid", "incomplete", "incomplete_expired":
		return subscription.StatusExpired
	default:
		return subscription.StatusExpired
	}
}
