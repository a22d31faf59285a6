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

	"github.com/rentora/rentora/internal/resolver"
)

type contextKey string

const (
	roleKey       contextKey = "role"
	actorKey      contextKey = "actor"
	resolutionKey contextKey = "resolution"
)

// GetRole retrieves the caller's platform role from context.
func GetRole(ctx context.Context) string {
	if val, ok := ctx.Value(roleKey).(string); ok {
		return val
	}
	return ""
}

// GetActor retrieves the authenticated admin subject from context.
func GetActor(ctx context.Context) string {
	if val, ok := ctx.Value(actorKey).(string); ok {
		return val
	}
	return ""
}

// GetResolution retrieves the resolved tenant handle from context.
// Only set on routes behind the tenant middleware.
func GetResolution(ctx context.Context) *resolver.Resolution {
	if val, ok := ctx.Value(resolutionKey).(*resolver.Resolution); ok {
		return val
	}
	return nil
}
