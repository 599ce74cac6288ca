package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookingcore/internal/model"
)

type TenantRepository struct {
	db *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

// UpdateSubscription stores the tenant's subscription reference from a
// subscription-checkout event.
func (r *TenantRepository) UpdateSubscription(ctx context.Context, tenantID int64, subscriptionID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tenants SET subscription_id = $1, subscription_status = 'active', updated_at = NOW()
		WHERE id = $2
	`, subscriptionID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// SetPaymentsEnabled toggles the tenant's payment-capability flag.
func (r *TenantRepository) SetPaymentsEnabled(ctx context.Context, tenantID int64, enabled bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tenants SET payments_enabled = $1, updated_at = NOW()
		WHERE id = $2
	`, enabled, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set payments_enabled: %w", err)
	}
	return nil
}

const tenantColumns = `id, name, contact_email, COALESCE(subscription_id, ''), COALESCE(subscription_status, ''), payments_enabled, created_at`

// ListCreatedOn returns tenants that signed up on the given calendar day.
func (r *TenantRepository) ListCreatedOn(ctx context.Context, day time.Time) ([]model.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE created_at::date = $1::date
		ORDER BY id
	`
	return r.listTenants(ctx, query, day)
}

// ListCancelledOn returns tenants whose subscription was cancelled on the
// given calendar day.
func (r *TenantRepository) ListCancelledOn(ctx context.Context, day time.Time) ([]model.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE subscription_status = 'cancelled' AND updated_at::date = $1::date
		ORDER BY id
	`
	return r.listTenants(ctx, query, day)
}

// ListInactiveSince returns tenants with no booking since the cutoff.
func (r *TenantRepository) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]model.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants t
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.tenant_id = t.id AND b.created_at >= $1
		)
		ORDER BY t.id
	`
	return r.listTenants(ctx, query, cutoff)
}

func (r *TenantRepository) listTenants(ctx context.Context, query string, args ...any) ([]model.Tenant, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.ContactEmail,
			&t.SubscriptionID,
			&t.SubscriptionStatus,
			&t.PaymentsEnabled,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}
