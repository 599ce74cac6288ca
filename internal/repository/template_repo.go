package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingcore/internal/model"
)

// ErrTemplateNotFound is returned when no active template exists for a
// (tenant, kind). Callers treat it as "this kind is disabled", not a failure.
var ErrTemplateNotFound = errors.New("no active template for notification kind")

type TemplateRepository struct {
	db *pgxpool.Pool
}

func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, tenant_id, kind, subject, html_body, cta_text, cta_url, is_active, created_at, updated_at`

// GetActive loads the single active template for a (tenant, kind).
func (r *TemplateRepository) GetActive(ctx context.Context, tenantID int64, kind model.NotificationKind) (*model.NotificationTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM notification_templates
		WHERE tenant_id = $1 AND kind = $2 AND is_active = TRUE
	`
	var t model.NotificationTemplate
	err := r.db.QueryRow(ctx, query, tenantID, kind).Scan(
		&t.ID,
		&t.TenantID,
		&t.Kind,
		&t.Subject,
		&t.HTMLBody,
		&t.CTAText,
		&t.CTAURL,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// Create inserts a template. Activating it first deactivates any previously
// active template for the same (tenant, kind); the partial unique index on
// active rows backs this up at the storage level.
func (r *TemplateRepository) Create(ctx context.Context, t *model.NotificationTemplate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if t.IsActive {
		if _, err := tx.Exec(ctx, `
			UPDATE notification_templates SET is_active = FALSE, updated_at = NOW()
			WHERE tenant_id = $1 AND kind = $2 AND is_active = TRUE
		`, t.TenantID, t.Kind); err != nil {
			return fmt.Errorf("failed to deactivate previous template: %w", err)
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO notification_templates (tenant_id, kind, subject, html_body, cta_text, cta_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.TenantID, t.Kind, t.Subject, t.HTMLBody, t.CTAText, t.CTAURL, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	return tx.Commit(ctx)
}

// Update rewrites a template's content. Tenant-scoped.
func (r *TemplateRepository) Update(ctx context.Context, t *model.NotificationTemplate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notification_templates
		SET subject = $1, html_body = $2, cta_text = $3, cta_url = $4, updated_at = NOW()
		WHERE id = $5 AND tenant_id = $6
	`, t.Subject, t.HTMLBody, t.CTAText, t.CTAURL, t.ID, t.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Deactivate disables a template without deleting the authored content.
func (r *TemplateRepository) Deactivate(ctx context.Context, tenantID, templateID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notification_templates SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, templateID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// ListByTenant returns all templates a tenant has authored.
func (r *TemplateRepository) ListByTenant(ctx context.Context, tenantID int64) ([]model.NotificationTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM notification_templates
		WHERE tenant_id = $1
		ORDER BY kind, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.NotificationTemplate
	for rows.Next() {
		var t model.NotificationTemplate
		err := rows.Scan(
			&t.ID,
			&t.TenantID,
			&t.Kind,
			&t.Subject,
			&t.HTMLBody,
			&t.CTAText,
			&t.CTAURL,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}

	return templates, rows.Err()
}
