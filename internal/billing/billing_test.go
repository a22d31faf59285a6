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

package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/rentora/rentora/internal/audit"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
)

type recordingSubStore struct {
	upserted []*subscription.Subscription
}

func (r *recordingSubStore) GetCurrentByMerchant(context.Context, string) (*subscription.Subscription, error) {
	return nil, subscription.ErrNoSubscription
}

func (r *recordingSubStore) Upsert(_ context.Context, s *subscription.Subscription) error {
	r.upserted = append(r.upserted, s)
	return nil
}

type recordingTenantStore struct {
	tenant.Store

	refreshed map[string]string
}

func (r *recordingTenantStore) RefreshSubscriptionStatus(_ context.Context, merchantID, status string) error {
	if r.refreshed == nil {
		r.refreshed = make(map[string]string)
	}
	r.refreshed[merchantID] = status
	return nil
}

func subscriptionEvent(t *testing.T, eventType string, payload map[string]any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestProcessSubscriptionUpdated(t *testing.T) {
	subs := &recordingSubStore{}
	tenants := &recordingTenantStore{}
	svc := NewService(subs, tenants, audit.NewSlogLogger())

	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	event := subscriptionEvent(t, "customer.subscription.updated", map[string]any{
		"id":                 "sub_123",
		"status":             "active",
		"current_period_end": periodEnd.Unix(),
		"metadata":           map[string]string{"merchant_id": "m-1"},
		"plan":               map[string]any{"nickname": "standard"},
	})

	require.NoError(t, svc.Process(context.Background(), event))

	require.Len(t, subs.upserted, 1)
	got := subs.upserted[0]
	assert.Equal(t, "sub_123", got.ID)
	assert.Equal(t, "m-1", got.MerchantID)
	assert.Equal(t, subscription.StatusActive, got.Status)
	assert.Equal(t, "standard", got.Plan)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.True(t, got.CurrentPeriodEnd.Equal(periodEnd))

	assert.Equal(t, subscription.StatusActive, tenants.refreshed["m-1"],
		"denormalized tenant status follows the sub-record write")
}

func TestProcessSubscriptionDeleted(t *testing.T) {
	subs := &recordingSubStore{}
	tenants := &recordingTenantStore{}
	svc := NewService(subs, tenants, audit.NewSlogLogger())

	event := subscriptionEvent(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_123",
		"status":   "active",
		"metadata": map[string]string{"merchant_id": "m-1"},
	})

	require.NoError(t, svc.Process(context.Background(), event))
	require.Len(t, subs.upserted, 1)
	assert.Equal(t, subscription.StatusCancelled, subs.upserted[0].Status)
}

func TestProcessMissingMerchantMetadata(t *testing.T) {
	subs := &recordingSubStore{}
	svc := NewService(subs, &recordingTenantStore{}, audit.NewSlogLogger())

	event := subscriptionEvent(t, "customer.subscription.created", map[string]any{
		"id":     "sub_123",
		"status": "active",
	})

	assert.Error(t, svc.Process(context.Background(), event))
	assert.Empty(t, subs.upserted)
}

func TestProcessIgnoresUnrelatedEvents(t *testing.T) {
	subs := &recordingSubStore{}
	svc := NewService(subs, &recordingTenantStore{}, audit.NewSlogLogger())

	event := subscriptionEvent(t, "invoice.payment_succeeded", map[string]any{"id": "in_1"})

	require.NoError(t, svc.Process(context.Background(), event))
	assert.Empty(t, subs.upserted)
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		eventType string
		stripe    string
		want      string
	}{
		{"customer.subscription.deleted", "active", subscription.StatusCancelled},
		{"customer.subscription.updated", "trialing", subscription.StatusTrial},
		{"customer.subscription.updated", "active", subscription.StatusActive},
		{"customer.subscription.updated", "past_due", subscription.StatusPastDue},
		{"customer.subscription.updated", "canceled", subscription.StatusCancelled},
		{"customer.subscription.updated", "paused", subscription.StatusPaused},
		{"customer.subscription.updated", "unpaid", subscription.StatusExpired},
		{"customer.subscription.updated", "incomplete", subscription.StatusExpired},
		{"customer.subscription.updated", "something_new", subscription.StatusExpired},
	}

	for _, tc := range cases {
		t.Run(tc.eventType+"/"+tc.stripe, func(t *testing.T) {
			assert.Equal(t, tc.want, MapStatus(tc.eventType, tc.stripe))
		})
	}
}
