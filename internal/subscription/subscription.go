package subscription

import (
	"context"
	"errors"
	"time"
)

var ErrNoSubscription = errors.New("no subscription record")

// Subscription is the per-merchant subscription sub-record. It is the
// single source of truth for gating; the denormalized status field on
// the tenant record is a display cache only.
type Subscription struct {
	ID                 string     `json:"id"`
	MerchantID         string     `json:"merchant_id"`
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Status constants
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusPastDue   = "past_due"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
	StatusPaused    = "paused"
)

// ValidStatus reports whether s is a known subscription status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTrial, StatusActive, StatusPastDue, StatusExpired, StatusCancelled, StatusPaused:
		return true
	}
	return false
}

// Store defines registry storage for subscription sub-records
type Store interface {
	// GetCurrentByMerchant returns the merchant's current subscription,
	// or ErrNoSubscription when none exists.
	GetCurrentByMerchant(ctx context.Context, merchantID string) (*Subscription, error)
	// Upsert inserts or replaces the merchant's current subscription.
	Upsert(ctx context.Context, sub *Subscription) error
}
