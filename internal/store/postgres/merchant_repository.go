package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rentora/rentora/internal/merchant"
)

// MerchantRepository implements merchant.Store over the registry database
type MerchantRepository struct {
	registry *Registry
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(registry *Registry) *MerchantRepository {
	return &MerchantRepository{registry: registry}
}

// Create inserts a new merchant
func (r *MerchantRepository) Create(ctx context.Context, m *merchant.Merchant) error {
	return r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO merchants (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, m.ID, m.Name, m.Email, m.CreatedAt, m.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("merchant email already exists: %w", err)
			}
			return fmt.Errorf("failed to insert merchant: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a merchant by ID
func (r *MerchantRepository) GetByID(ctx context.Context, id string) (*merchant.Merchant, error) {
	var m merchant.Merchant
	err := r.registry.withConn(ctx, func(conn *pgx.Conn) error {
		err := conn.QueryRow(ctx, `
			SELECT id, name, email, created_at, updated_at
			FROM merchants
			WHERE id = $1
		`, id).Scan(&m.ID, &m.Name, &m.Email, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if err == pgx.ErrNoRows {
				return merchant.ErrMerchantNotFound
			}
			return fmt.Errorf("failed to get merchant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
