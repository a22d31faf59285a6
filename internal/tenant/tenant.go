package tenant

import (
	"net/url"
	"time"
)

// Tenant represents one isolated shop, identified by subdomain, with its
// own dedicated database. The registry (main) database is the
// authoritative source for these records.
type Tenant struct {
	ID          string `json:"id"`
	Subdomain   string `json:"subdomain"`
	DisplayName string `json:"display_name"`
	// DatabaseURL is the connection string to the tenant's isolated
	// database. It is never serialized; external responses carry
	// MaskedDatabaseURL() instead.
	DatabaseURL string `json:"-"`
	Status      string `json:"status"`
	MerchantID  string `json:"merchant_id"`
	LogoURL     *string `json:"logo_url,omitempty"`
	// SubscriptionStatus is a denormalized display cache refreshed on
	// subscription writes. Gating decisions read the subscription
	// sub-record, never this field.
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WithMerchant is a tenant row joined with its owning merchant's
// display fields, as returned by List.
type WithMerchant struct {
	Tenant
	MerchantName  string `json:"merchant_name"`
	MerchantEmail string `json:"merchant_email"`
}

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// MaskedDatabaseURL returns the tenant database URL with credentials
// redacted, safe for API responses and logs.
func (t *Tenant) MaskedDatabaseURL() string {
	return MaskDatabaseURL(t.DatabaseURL)
}

// MaskDatabaseURL redacts the userinfo portion of a connection string.
// Unparseable values are masked entirely rather than leaked.
func MaskDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "****"
	}
	if u.User != nil {
		u.User = url.UserPassword("****", "****")
	}
	return u.String()
}
