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
	"net/http"

	"github.com/rentora/rentora/internal/resolver"
	"github.com/rentora/rentora/internal/subscription"
	"github.com/rentora/rentora/internal/tenant"
)

// Stable error codes carried in every error body
const (
	CodeTenantRequired = "TENANT_REQUIRED"
	CodeTenantNotFound = "TENANT_NOT_FOUND"
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
)

// apiError is the uniform JSON error body
type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]any{"error": apiError{Code: code, Message: message}})
}

func respondErrorDetail(w http.ResponseWriter, status int, e apiError) {
	respondJSON(w, status, map[string]any{"error": e})
}

// mapResolveError maps a resolver failure to the uniform HTTP response.
// Every consuming handler uses this single table. A raw database error
// never reaches the tenant-facing client.
func mapResolveError(err error) (int, apiError) {
	var denial *subscription.Denial
	switch {
	case errors.Is(err, resolver.ErrSubdomainRequired):
		return http.StatusBadRequest, apiError{Code: CodeTenantRequired, Message: "request host carries no tenant subdomain"}
	case errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, apiError{Code: CodeTenantNotFound, Message: "tenant not found"}
	case errors.Is(err, tenant.ErrTenantInactive):
		// Inactive tenants are masked as not-found
		return http.StatusForbidden, apiError{Code: CodeTenantNotFound, Message: "tenant not found"}
	case errors.As(err, &denial):
		return denialStatus(denial.Code), apiError{Code: denial.Code, Message: denial.Message, Detail: denial.Detail}
	default:
		return http.StatusInternalServerError, apiError{Code: CodeInternal, Message: "failed to resolve tenant"}
	}
}

func denialStatus(code string) int {
	if code == subscription.CodeNoMerchant {
		return http.StatusBadRequest
	}
	return http.StatusForbidden
}
