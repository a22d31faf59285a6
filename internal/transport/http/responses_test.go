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

package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentora/rentora/internal/resolver"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
)

func TestMapResolveError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing subdomain",
			err:        resolver.ErrSubdomainRequired,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeTenantRequired,
		},
		{
			name:       "unknown tenant",
			err:        tenant.ErrTenantNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   CodeTenantNotFound,
		},
		{
			name:       "inactive tenant masked as not found",
			err:        fmt.Errorf("%w: shop1 is suspended", tenant.ErrTenantInactive),
			wantStatus: http.StatusForbidden,
			wantCode:   CodeTenantNotFound,
		},
		{
			name:       "no merchant association",
			err:        &subscription.Denial{Code: subscription.CodeNoMerchant, Message: "tenant has no merchant association"},
			wantStatus: http.StatusBadRequest,
			wantCode:   subscription.CodeNoMerchant,
		},
		{
			name:       "expired subscription",
			err:        &subscription.Denial{Code: subscription.CodeExpired, Message: "subscription has expired"},
			wantStatus: http.StatusForbidden,
			wantCode:   subscription.CodeExpired,
		},
		{
			name:       "period ended",
			err:        &subscription.Denial{Code: subscription.CodePeriodEnded, Message: "subscription period has ended"},
			wantStatus: http.StatusForbidden,
			wantCode:   subscription.CodePeriodEnded,
		},
		{
			name:       "infrastructure failure hidden",
			err:        errors.New("dial tcp: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := mapResolveError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, body.Code)
			if tc.wantCode == CodeInternal {
				assert.NotContains(t, body.Message, "dial tcp", "raw errors never reach the client")
			}
		})
	}
}

func TestDenialDetailPassedThrough(t *testing.T) {
	d := &subscription.Denial{
		Code:    subscription.CodePeriodEnded,
		Message: "subscription period has ended",
		Detail:  map[string]any{"merchant_id": "m-1", "expired_at": "2026-03-01T00:00:00Z"},
	}

	_, body := mapResolveError(d)
	assert.Equal(t, "m-1", body.Detail["merchant_id"])
	assert.Equal(t, "2026-03-01T00:00:00Z", body.Detail["expired_at"])
}
