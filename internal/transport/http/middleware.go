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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rentora/rentora/internal/observability/logger"
	"github.com/rentora/rentora/internal/subscription"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// PlatformAuthMiddleware validates an admin bearer token and stores the
// caller's role and subject in context. Tokens are HS256-signed with
// the configured secret and must carry a "role" claim.
func (h *Handler) PlatformAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header is required")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid authorization header format")
			return
		}
		tokenString := authHeader[len(bearerPrefix):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(h.adminJWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid token claims")
			return
		}

		role, _ := claims["role"].(string)
		sub, _ := claims["sub"].(string)

		ctx := context.WithValue(r.Context(), roleKey, role)
		ctx = context.WithValue(ctx, actorKey, sub)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePlatformRole rejects callers without the platform super-role.
func RequirePlatformRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()) != subscription.PlatformRole {
			respondError(w, http.StatusForbidden, CodeForbidden, "platform role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TenantMiddleware resolves the request's tenant from the host and
// injects the resolution into context, or short-circuits with the
// uniform error mapping.
func (h *Handler) TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := h.resolver.Resolve(r.Context(), r.Host, GetRole(r.Context()))
		if err != nil {
			status, body := mapResolveError(err)
			if status >= http.StatusInternalServerError {
				slog.ErrorContext(r.Context(), "tenant resolution failed",
					logger.Path(r.URL.Path), logger.Error(err))
			}
			respondErrorDetail(w, status, body)
			return
		}

		ctx := context.WithValue(r.Context(), resolutionKey, res)
		ctx = logger.ContextWithTenant(ctx, res.Tenant.Subdomain)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
