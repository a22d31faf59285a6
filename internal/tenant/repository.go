package tenant

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant inactive")
	ErrDuplicateSubdomain = errors.New("subdomain already exists")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
)

// UpdateFields carries a partial update. Nil pointers are untouched
// fields; a pointer to the empty string on an optional URL field is
// normalized to NULL before persistence.
type UpdateFields struct {
	DisplayName        *string
	Status             *string
	DatabaseURL        *string
	LogoURL            *string
	SubscriptionStatus *string
	UpdatedAt          time.Time
}

// Empty reports whether the update carries no fields.
func (f *UpdateFields) Empty() bool {
	return f.DisplayName == nil && f.Status == nil && f.DatabaseURL == nil &&
		f.LogoURL == nil && f.SubscriptionStatus == nil
}

// Store defines the registry storage interface for tenants. All
// implementations use short-lived scoped connections: registry access
// happens once per cache miss, not once per request.
type Store interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) error
	Update(ctx context.Context, id string, fields UpdateFields) (*Tenant, error)
	List(ctx context.Context) ([]*WithMerchant, error)
	// RefreshSubscriptionStatus updates the denormalized display field
	// for every tenant owned by the merchant.
	RefreshSubscriptionStatus(ctx context.Context, merchantID, status string) error
}
