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

package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rentora/rentora/internal/merchant"
	"github.com/rentora/rentora/internal/tenant"
)

// PlatformRole bypasses the gate unconditionally.
const PlatformRole = "platform_admin"

// Denial reason codes. These are stable machine-readable identifiers;
// HTTP handlers map them to response statuses.
const (
	CodeNoMerchant     = "NO_MERCHANT"
	CodeNoSubscription = "NO_SUBSCRIPTION"
	CodePaused         = "SUBSCRIPTION_PAUSED"
	CodeCancelled      = "SUBSCRIPTION_CANCELLED"
	CodeExpired        = "SUBSCRIPTION_EXPIRED"
	CodePastDue        = "SUBSCRIPTION_PAST_DUE"
	CodePeriodEnded    = "SUBSCRIPTION_PERIOD_ENDED"
	CodePeriodMissing  = "SUBSCRIPTION_PERIOD_MISSING"
)

// Denial is a structured gate outcome: a stable code, a human-readable
// message and contextual detail. It is a business outcome, not an
// exception, but implements error so it can flow through the resolver.
type Denial struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func (d *Denial) Error() string {
	return fmt.Sprintf("subscription gate denied: %s", d.Code)
}

// Gate decides whether a resolved tenant may serve the current request
// based solely on the merchant's subscription sub-record. State is read
// fresh from the registry on every check; no decision is cached.
type Gate struct {
	merchants merchant.Store
	subs      Store
	now       func() time.Time
}

// NewGate creates a subscription gate. now may be nil (defaults to
// time.Now); tests inject a fixed clock.
func NewGate(merchants merchant.Store, subs Store, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{merchants: merchants, subs: subs, now: now}
}

// Check evaluates the gate for a resolved tenant. It returns nil when
// the request may proceed, a *Denial for policy outcomes, or a wrapped
// storage error for registry failures.
func (g *Gate) Check(ctx context.Context, t *tenant.Tenant, role string) error {
	if role == PlatformRole {
		return nil
	}

	if t.MerchantID == "" {
		return &Denial{
			Code:    CodeNoMerchant,
			Message: "tenant has no merchant association",
			Detail:  map[string]any{"tenant_id": t.ID},
		}
	}

	m, err := g.merchants.GetByID(ctx, t.MerchantID)
	if err != nil {
		if errors.Is(err, merchant.ErrMerchantNotFound) {
			return &Denial{
				Code:    CodeNoMerchant,
				Message: "tenant's merchant does not exist",
				Detail:  map[string]any{"merchant_id": t.MerchantID},
			}
		}
		return fmt.Errorf("failed to load merchant: %w", err)
	}

	sub, err := g.subs.GetCurrentByMerchant(ctx, m.ID)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return &Denial{
				Code:    CodeNoSubscription,
				Message: "merchant has no subscription",
				Detail:  map[string]any{"merchant_id": m.ID, "merchant_name": m.Name},
			}
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	// Status labels are authoritative even when period dates are stale
	// or missing, so they are checked before any date logic.
	switch sub.Status {
	case StatusPaused:
		return g.deny(CodePaused, "subscription is paused", m, sub)
	case StatusCancelled:
		return g.deny(CodeCancelled, "subscription is cancelled", m, sub)
	case StatusExpired:
		return g.deny(CodeExpired, "subscription has expired", m, sub)
	case StatusPastDue:
		return g.deny(CodePastDue, "subscription payment is past due", m, sub)
	}

	now := g.now()
	if sub.CurrentPeriodEnd != nil {
		if sub.CurrentPeriodEnd.After(now) {
			return nil
		}
		d := g.deny(CodePeriodEnded, "subscription period has ended", m, sub)
		d.Detail["expired_at"] = sub.CurrentPeriodEnd.UTC().Format(time.RFC3339)
		return d
	}

	// An indeterminate period fails closed, never open.
	return g.deny(CodePeriodMissing, "subscription has no current period end", m, sub)
}

func (g *Gate) deny(code, message string, m *merchant.Merchant, sub *Subscription) *Denial {
	return &Denial{
		Code:    code,
		Message: message,
		Detail: map[string]any{
			"merchant_id":   m.ID,
			"merchant_name": m.Name,
			"status":        sub.Status,
		},
	}
}
