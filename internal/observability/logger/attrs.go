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

package logger

import "log/slog"

// Common attribute keys for consistent logging across the application

// Request attributes
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

func UserAgent(ua string) slog.Attr {
	return slog.String("user_agent", ua)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func Duration(ms int64) slog.Attr {
	return slog.Int64("duration_ms", ms)
}

// Tenant attributes
func TenantID(id string) slog.Attr {
	return slog.String("tenant_id", id)
}

func Subdomain(subdomain string) slog.Attr {
	return slog.String("subdomain", subdomain)
}

func MerchantID(id string) slog.Attr {
	return slog.String("merchant_id", id)
}

func DatabaseName(name string) slog.Attr {
	return slog.String("database_name", name)
}

func SubscriptionStatus(status string) slog.Attr {
	return slog.String("subscription_status", status)
}

func DenialCode(code string) slog.Attr {
	return slog.String("denial_code", code)
}

// Error attribute
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Component attribute
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
