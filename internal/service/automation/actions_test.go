package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contracts "bookingcore/contracts/mq"
	"bookingcore/internal/model"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/render"
	"bookingcore/internal/service/resolve"
)

type fakeResolver struct {
	resolved map[model.NotificationKind]*resolve.Resolved
}

func (f *fakeResolver) Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*resolve.Resolved, error) {
	r, ok := f.resolved[kind]
	if !ok {
		return nil, resolve.ErrNotConfigured
	}
	return r, nil
}

type fakeMailer struct {
	sent    []dispatch.Email
	sendErr error
}

func (f *fakeMailer) Send(ctx context.Context, email dispatch.Email) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, email)
	return nil
}

type fakeTaskStore struct {
	tasks []model.InternalTask
	err   error
}

func (f *fakeTaskStore) InsertTask(ctx context.Context, task *model.InternalTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, *task)
	return nil
}

type fakePublisher struct {
	published []any
	err       error
}

func (f *fakePublisher) Publish(routingKey string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func welcomeResolved() map[model.NotificationKind]*resolve.Resolved {
	return map[model.NotificationKind]*resolve.Resolved{
		model.KindWelcome: {
			Template: &model.NotificationTemplate{Subject: "Welcome, {{clientName}}!"},
			Branding: &model.Branding{DisplayName: "Platform"},
		},
	}
}

func tenantMatch() Match {
	return Match{
		EntityID: 7,
		TenantID: 7,
		Email:    "owner@agency.example",
		Name:     "Agency",
		Tokens:   render.Tokens{"clientName": "Agency"},
	}
}

func TestSendTemplateAction(t *testing.T) {
	mailer := &fakeMailer{}
	actions := NewActions(&fakeResolver{resolved: welcomeResolved()}, mailer, &fakeTaskStore{}, &fakePublisher{}, zap.NewNop())

	rule := activeRule("tenant_signup", "send_template")
	rule.ActionConfig = map[string]string{"kind": "welcome"}

	acted, err := actions.SendTemplate(context.Background(), &rule, []Match{tenantMatch()})
	require.NoError(t, err)

	assert.Equal(t, 1, acted)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@agency.example", mailer.sent[0].To)
	assert.Equal(t, "Welcome, Agency!", mailer.sent[0].Content.Subject)
}

func TestSendTemplateSkipsUnconfiguredKind(t *testing.T) {
	mailer := &fakeMailer{}
	actions := NewActions(&fakeResolver{}, mailer, &fakeTaskStore{}, &fakePublisher{}, zap.NewNop())

	rule := activeRule("tenant_signup", "send_template")
	rule.ActionConfig = map[string]string{"kind": "welcome"}

	acted, err := actions.SendTemplate(context.Background(), &rule, []Match{tenantMatch()})
	require.NoError(t, err)
	assert.Equal(t, 0, acted)
	assert.Empty(t, mailer.sent)
}

func TestSendTemplateMissingKind(t *testing.T) {
	actions := NewActions(&fakeResolver{}, &fakeMailer{}, &fakeTaskStore{}, &fakePublisher{}, zap.NewNop())
	rule := activeRule("tenant_signup", "send_template")

	_, err := actions.SendTemplate(context.Background(), &rule, []Match{tenantMatch()})
	assert.Error(t, err)
}

func TestSendTemplateReportsDispatchFailures(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("provider down")}
	actions := NewActions(&fakeResolver{resolved: welcomeResolved()}, mailer, &fakeTaskStore{}, &fakePublisher{}, zap.NewNop())

	rule := activeRule("tenant_signup", "send_template")
	rule.ActionConfig = map[string]string{"kind": "welcome"}

	acted, err := actions.SendTemplate(context.Background(), &rule, []Match{tenantMatch()})
	require.Error(t, err)
	assert.Equal(t, 0, acted)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSendSeriesSendsEachKindInOrder(t *testing.T) {
	resolved := welcomeResolved()
	resolved[model.KindPreDepartureReminder] = &resolve.Resolved{
		Template: &model.NotificationTemplate{Subject: "Second message"},
		Branding: &model.Branding{},
	}

	mailer := &fakeMailer{}
	actions := NewActions(&fakeResolver{resolved: resolved}, mailer, &fakeTaskStore{}, &fakePublisher{}, zap.NewNop())

	rule := activeRule("tenant_signup", "send_series")
	rule.ActionConfig = map[string]string{"kinds": "welcome, pre_departure_reminder"}

	acted, err := actions.SendSeries(context.Background(), &rule, []Match{tenantMatch()})
	require.NoError(t, err)

	assert.Equal(t, 1, acted)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, model.KindWelcome, mailer.sent[0].Kind)
	assert.Equal(t, model.KindPreDepartureReminder, mailer.sent[1].Kind)
}

func TestCreateTaskSubstitutesTokens(t *testing.T) {
	tasks := &fakeTaskStore{}
	actions := NewActions(&fakeResolver{}, &fakeMailer{}, tasks, &fakePublisher{}, zap.NewNop())

	rule := activeRule("tenant_inactive", "create_task")
	rule.ActionConfig = map[string]string{
		"title":   "Call {{clientName}}",
		"details": "No bookings recently for {{clientName}}.",
	}

	acted, err := actions.CreateTask(context.Background(), &rule, []Match{tenantMatch()})
	require.NoError(t, err)

	assert.Equal(t, 1, acted)
	require.Len(t, tasks.tasks, 1)
	assert.Equal(t, int64(7), tasks.tasks[0].TenantID)
	assert.Equal(t, "Call Agency", tasks.tasks[0].Title)
	assert.Equal(t, "No bookings recently for Agency.", tasks.tasks[0].Details)
}

func TestNotifyStaffPublishesPerMatch(t *testing.T) {
	publisher := &fakePublisher{}
	actions := NewActions(&fakeResolver{}, &fakeMailer{}, &fakeTaskStore{}, publisher, zap.NewNop())

	rule := activeRule("subscription_cancelled", "notify_staff")
	rule.ActionConfig = map[string]string{
		"title":       "{{clientName}} cancelled",
		"description": "Subscription ended for {{clientName}}",
	}

	acted, err := actions.NotifyStaff(context.Background(), &rule, []Match{tenantMatch()})
	require.NoError(t, err)

	assert.Equal(t, 1, acted)
	require.Len(t, publisher.published, 1)
	payload, ok := publisher.published[0].(contracts.NotificationCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(7), payload.TenantID)
	assert.Equal(t, "Agency cancelled", payload.Title)
	assert.Equal(t, int64(7), payload.DedupID)
	assert.Equal(t, "subscription_cancelled", payload.Kind)
}
