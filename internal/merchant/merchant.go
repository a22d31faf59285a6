package merchant

import (
	"context"
	"errors"
	"time"
)

var ErrMerchantNotFound = errors.New("merchant not found")

// Merchant is the owning organization behind one or more tenants.
// Subscription state hangs off the merchant, not the tenant.
type Merchant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines registry storage for merchants
type Store interface {
	Create(ctx context.Context, m *Merchant) error
	GetByID(ctx context.Context, id string) (*Merchant, error)
}
