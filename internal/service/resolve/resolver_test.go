package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookingcore/internal/model"
	"bookingcore/internal/repository"
)

type fakeTemplateStore struct {
	template *model.NotificationTemplate
	err      error
}

func (f *fakeTemplateStore) GetActive(ctx context.Context, tenantID int64, kind model.NotificationKind) (*model.NotificationTemplate, error) {
	return f.template, f.err
}

type fakeBrandingStore struct {
	branding *model.Branding
	err      error
}

func (f *fakeBrandingStore) Get(ctx context.Context, tenantID int64) (*model.Branding, error) {
	return f.branding, f.err
}

func TestResolveReturnsTemplateAndBranding(t *testing.T) {
	templates := &fakeTemplateStore{template: &model.NotificationTemplate{
		TenantID: 7,
		Kind:     model.KindWelcome,
		Subject:  "Welcome",
	}}
	brandings := &fakeBrandingStore{branding: &model.Branding{
		TenantID:    7,
		DisplayName: "Sunways",
	}}

	resolver := NewResolver(templates, brandings)

	resolved, err := resolver.Resolve(context.Background(), 7, model.KindWelcome)
	require.NoError(t, err)

	assert.Equal(t, "Welcome", resolved.Template.Subject)
	assert.Equal(t, "Sunways", resolved.Branding.DisplayName)
}

func TestResolveMapsMissingTemplateToNotConfigured(t *testing.T) {
	templates := &fakeTemplateStore{err: repository.ErrTemplateNotFound}
	brandings := &fakeBrandingStore{branding: &model.Branding{TenantID: 7}}

	resolver := NewResolver(templates, brandings)

	_, err := resolver.Resolve(context.Background(), 7, model.KindWelcome)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolveTemplateInfraFailureIsNotNotConfigured(t *testing.T) {
	templates := &fakeTemplateStore{err: errors.New("connection refused")}
	brandings := &fakeBrandingStore{branding: &model.Branding{TenantID: 7}}

	resolver := NewResolver(templates, brandings)

	_, err := resolver.Resolve(context.Background(), 7, model.KindWelcome)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestResolveBrandingFailurePropagates(t *testing.T) {
	templates := &fakeTemplateStore{template: &model.NotificationTemplate{}}
	brandings := &fakeBrandingStore{err: errors.New("db down")}

	resolver := NewResolver(templates, brandings)

	_, err := resolver.Resolve(context.Background(), 7, model.KindWelcome)
	assert.Error(t, err)
}
