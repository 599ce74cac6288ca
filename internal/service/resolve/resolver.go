package resolve

import (
	"context"
	"errors"
	"fmt"

	"bookingcore/internal/model"
	"bookingcore/internal/repository"
)

// ErrNotConfigured means the tenant has no active template for the requested
// kind. This is not a failure: an agency may intentionally disable a
// notification kind, and callers must skip silently.
var ErrNotConfigured = errors.New("notification kind not configured for tenant")

type TemplateStore interface {
	GetActive(ctx context.Context, tenantID int64, kind model.NotificationKind) (*model.NotificationTemplate, error)
}

type BrandingStore interface {
	Get(ctx context.Context, tenantID int64) (*model.Branding, error)
}

// Resolved is a tenant's template plus branding for one notification kind.
type Resolved struct {
	Template *model.NotificationTemplate
	Branding *model.Branding
}

// Resolver loads the active template and branding for (tenant, kind).
type Resolver struct {
	templates TemplateStore
	brandings BrandingStore
}

func NewResolver(templates TemplateStore, brandings BrandingStore) *Resolver {
	return &Resolver{
		templates: templates,
		brandings: brandings,
	}
}

// Resolve fetches template and branding in parallel. No caching beyond the
// request: callers that fan out per tenant already amortize lookups.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*Resolved, error) {
	type templateResult struct {
		template *model.NotificationTemplate
		err      error
	}
	type brandingResult struct {
		branding *model.Branding
		err      error
	}

	templateCh := make(chan templateResult, 1)
	brandingCh := make(chan brandingResult, 1)

	go func() {
		t, err := r.templates.GetActive(ctx, tenantID, kind)
		templateCh <- templateResult{template: t, err: err}
	}()
	go func() {
		b, err := r.brandings.Get(ctx, tenantID)
		brandingCh <- brandingResult{branding: b, err: err}
	}()

	tr := <-templateCh
	br := <-brandingCh

	if tr.err != nil {
		if errors.Is(tr.err, repository.ErrTemplateNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to resolve template: %w", tr.err)
	}
	if br.err != nil {
		return nil, fmt.Errorf("failed to resolve branding: %w", br.err)
	}

	return &Resolved{
		Template: tr.template,
		Branding: br.branding,
	}, nil
}
