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
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rentora/rentora/internal/audit"
	"github.com/rentora/rentora/internal/billing"
	"github.com/rentora/rentora/internal/observability/logger"
	"github.com/rentora/rentora/internal/resolver"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
	"github.com/rentora/rentora/internal/tenantcache"
)

const maxWebhookBody = 1 << 16

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService       *tenant.Service
	tenants             tenant.Store
	subs                subscription.Store
	cache               *tenantcache.Cache
	resolver            *resolver.Resolver
	billingService      *billing.Service
	auditLogger         audit.Logger
	adminJWTSecret      string
	stripeWebhookSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	tenants tenant.Store,
	subs subscription.Store,
	cache *tenantcache.Cache,
	res *resolver.Resolver,
	billingService *billing.Service,
	auditLogger audit.Logger,
	adminJWTSecret string,
	stripeWebhookSecret string,
) *Handler {
	return &Handler{
		tenantService:       tenantService,
		tenants:             tenants,
		subs:                subs,
		cache:               cache,
		resolver:            res,
		billingService:      billingService,
		auditLogger:         auditLogger,
		adminJWTSecret:      adminJWTSecret,
		stripeWebhookSecret: stripeWebhookSecret,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Billing webhook: authenticated by Stripe signature, not JWT
		r.Post("/billing/webhook", h.BillingWebhook)

		// Platform admin surface
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.PlatformAuthMiddleware)
			r.Use(RequirePlatformRole)

			r.Get("/tenants", h.ListTenants)
			r.Post("/tenants", h.CreateTenant)
			r.Patch("/tenants/{id}", h.UpdateTenant)
			r.Delete("/cache", h.ClearCache)
			r.Put("/merchants/{merchantID}/subscription", h.UpdateSubscription)
		})

		// Tenant-scoped surface: every route below this group receives
		// a resolved tenant handle or the chain short-circuits
		r.Group(func(r chi.Router) {
			r.Use(h.TenantMiddleware)
			r.Get("/shop/profile", h.ShopProfile)
		})
	})

	return r
}

// HealthCheck reports liveness
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tenantResponse is a tenant record with the database URL masked
type tenantResponse struct {
	*tenant.Tenant
	DatabaseURL string `json:"database_url"`
}

type tenantWithMerchantResponse struct {
	tenantResponse
	MerchantName  string `json:"merchant_name"`
	MerchantEmail string `json:"merchant_email"`
}

func maskTenant(t *tenant.Tenant) tenantResponse {
	return tenantResponse{Tenant: t, DatabaseURL: t.MaskedDatabaseURL()}
}

// ListTenants returns every tenant, newest-first, with merchant display
// fields. Database URLs are masked.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenantService.ListTenants(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to list tenants")
		return
	}

	out := make([]tenantWithMerchantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantWithMerchantResponse{
			tenantResponse: maskTenant(&t.Tenant),
			MerchantName:   t.MerchantName,
			MerchantEmail:  t.MerchantEmail,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": out})
}

type createTenantRequest struct {
	Subdomain   string `json:"subdomain"`
	DisplayName string `json:"display_name"`
	MerchantID  string `json:"merchant_id"`
	DatabaseURL string `json:"database_url"`
}

// CreateTenant registers a tenant record. Provisioning the tenant
// database is a separate operation (rentoractl); sequencing is the
// caller's responsibility.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), tenant.CreateParams{
		Subdomain:   req.Subdomain,
		DisplayName: req.DisplayName,
		MerchantID:  req.MerchantID,
		DatabaseURL: req.DatabaseURL,
	})
	if err != nil {
		if errors.Is(err, tenant.ErrDuplicateSubdomain) {
			respondError(w, http.StatusConflict, CodeConflict, "subdomain already exists")
			return
		}
		respondError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, maskTenant(t))
}

type updateTenantRequest struct {
	DisplayName        *string `json:"display_name"`
	Status             *string `json:"status"`
	DatabaseURL        *string `json:"database_url"`
	LogoURL            *string `json:"logo_url"`
	SubscriptionStatus *string `json:"subscription_status"`
}

// UpdateTenant applies a partial update to a tenant record
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.UpdateTenant(r.Context(), id, tenant.UpdateParams{
		DisplayName:        req.DisplayName,
		Status:             req.Status,
		DatabaseURL:        req.DatabaseURL,
		LogoURL:            req.LogoURL,
		SubscriptionStatus: req.SubscriptionStatus,
	})
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNoFieldsToUpdate):
			respondError(w, http.StatusBadRequest, CodeBadRequest, "no fields to update")
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, CodeTenantNotFound, "tenant not found")
		default:
			slog.ErrorContext(r.Context(), "failed to update tenant", logger.TenantID(id), logger.Error(err))
			respondError(w, http.StatusInternalServerError, CodeInternal, "failed to update tenant")
		}
		return
	}

	respondJSON(w, http.StatusOK, maskTenant(t))
}

// ClearCache releases cached tenant connections: one subdomain when
// given, otherwise all of them.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")

	var err error
	if subdomain != "" {
		err = h.cache.Invalidate(r.Context(), subdomain)
	} else {
		err = h.cache.Clear(r.Context())
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to clear tenant cache", logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to clear cache")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeCacheCleared,
		Subdomain: subdomain,
		ActorID:   GetActor(r.Context()),
	})

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type updateSubscriptionRequest struct {
	Plan               string  `json:"plan"`
	Status             string  `json:"status"`
	CurrentPeriodStart *string `json:"current_period_start"`
	CurrentPeriodEnd   *string `json:"current_period_end"`
	TrialEndsAt        *string `json:"trial_ends_at"`
}

// UpdateSubscription replaces a merchant's subscription sub-record.
// Date fields arrive as ISO-8601 strings and are parsed before
// persistence.
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, "merchantID")

	var req updateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if !subscription.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid subscription status")
		return
	}

	periodStart, err := parseISOTime(req.CurrentPeriodStart)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid current_period_start")
		return
	}
	periodEnd, err := parseISOTime(req.CurrentPeriodEnd)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid current_period_end")
		return
	}
	trialEnd, err := parseISOTime(req.TrialEndsAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid trial_ends_at")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to generate id")
		return
	}

	now := time.Now()
	sub := &subscription.Subscription{
		ID:                 id.String(),
		MerchantID:         merchantID,
		Plan:               req.Plan,
		Status:             req.Status,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		TrialEndsAt:        trialEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := h.subs.Upsert(r.Context(), sub); err != nil {
		slog.ErrorContext(r.Context(), "failed to update subscription",
			logger.MerchantID(merchantID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to update subscription")
		return
	}

	// Refresh the denormalized display field; never read for gating
	if err := h.tenants.RefreshSubscriptionStatus(r.Context(), merchantID, req.Status); err != nil {
		slog.WarnContext(r.Context(), "failed to refresh denormalized subscription status",
			logger.MerchantID(merchantID), logger.Error(err))
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:       audit.TypeSubscriptionUpdated,
		MerchantID: merchantID,
		ActorID:    GetActor(r.Context()),
		Metadata:   map[string]any{"status": req.Status},
	})

	respondJSON(w, http.StatusOK, sub)
}

// BillingWebhook receives Stripe events, verifies the signature, and
// hands the event to the billing service.
func (h *Handler) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "failed to read body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.stripeWebhookSecret)
	if err != nil {
		slog.WarnContext(r.Context(), "rejected billing webhook", logger.Error(err))
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid webhook signature")
		return
	}

	if err := h.billingService.Process(r.Context(), event); err != nil {
		slog.ErrorContext(r.Context(), "failed to process billing event",
			slog.String("event_id", event.ID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to process event")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// ShopProfile returns the shop profile row from the resolved tenant's
// database. The minimal storefront endpoint: everything else consumes
// the same resolution contract.
func (h *Handler) ShopProfile(w http.ResponseWriter, r *http.Request) {
	res := GetResolution(r.Context())
	if res == nil {
		respondError(w, http.StatusInternalServerError, CodeInternal, "tenant not resolved")
		return
	}

	var name, currency, timezone string
	err := res.Pool.QueryRow(r.Context(), `
		SELECT name, currency, timezone FROM shop_profile LIMIT 1
	`).Scan(&name, &currency, &timezone)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load shop profile",
			logger.Subdomain(res.Tenant.Subdomain), logger.Error(err))
		respondError(w, http.StatusInternalServerError, CodeInternal, "failed to load shop profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tenant":   maskTenant(res.Tenant),
		"name":     name,
		"currency": currency,
		"timezone": timezone,
	})
}

func parseISOTime(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
