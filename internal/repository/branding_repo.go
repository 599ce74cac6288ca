package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingcore/internal/model"
)

type BrandingRepository struct {
	db *pgxpool.Pool
}

func NewBrandingRepository(db *pgxpool.Pool) *BrandingRepository {
	return &BrandingRepository{db: db}
}

// Get returns the tenant's branding. A tenant that never configured branding
// gets an empty Branding, not an error; rendering then falls back to
// call-site tokens only.
func (r *BrandingRepository) Get(ctx context.Context, tenantID int64) (*model.Branding, error) {
	query := `
		SELECT tenant_id, display_name, logo_url, primary_color, contact_email, contact_phone
		FROM brandings
		WHERE tenant_id = $1
	`
	var b model.Branding
	err := r.db.QueryRow(ctx, query, tenantID).Scan(
		&b.TenantID,
		&b.DisplayName,
		&b.LogoURL,
		&b.PrimaryColor,
		&b.ContactEmail,
		&b.ContactPhone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.Branding{TenantID: tenantID}, nil
		}
		return nil, fmt.Errorf("failed to get branding: %w", err)
	}
	return &b, nil
}

// Upsert replaces the tenant's branding row.
func (r *BrandingRepository) Upsert(ctx context.Context, b *model.Branding) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO brandings (tenant_id, display_name, logo_url, primary_color, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    logo_url = EXCLUDED.logo_url,
		    primary_color = EXCLUDED.primary_color,
		    contact_email = EXCLUDED.contact_email,
		    contact_phone = EXCLUDED.contact_phone
	`, b.TenantID, b.DisplayName, b.LogoURL, b.PrimaryColor, b.ContactEmail, b.ContactPhone)
	if err != nil {
		return fmt.Errorf("failed to upsert branding: %w", err)
	}
	return nil
}
