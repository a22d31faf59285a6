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

package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types
const (
	TypeTenantCreated       = "tenant_created"
	TypeTenantUpdated       = "tenant_updated"
	TypeTenantProvisioned   = "tenant_provisioned"
	TypeCacheCleared        = "cache_cleared"
	TypeSubscriptionSynced  = "subscription_synced"
	TypeSubscriptionUpdated = "subscription_updated"
	TypeAccessDenied        = "access_denied"
)

// Event represents an auditable action
type Event struct {
	Type       string
	TenantID   string
	Subdomain  string
	MerchantID string
	ActorID    string
	Metadata   map[string]any
	Timestamp  time.Time
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("subdomain", event.Subdomain),
		slog.String("merchant_id", event.MerchantID),
		slog.String("actor_id", event.ActorID),
		slog.Time("timestamp", event.Timestamp),
	}

	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSensitive(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// isSensitive checks if a key likely contains a secret or connection string
func isSensitive(key string) bool {
	sensitive := []string{"password", "secret", "token", "key", "database_url", "authorization"}
	for _, s := range sensitive {
		if key == s {
			return true
		}
	}
	return false
}
