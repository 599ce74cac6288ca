package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookingcore/internal/model"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/resolve"
	"bookingcore/internal/webhook"
)

type fakeBookingStore struct {
	created   bool
	createErr error
	paidCount int
	countErr  error
	lastSaved *model.Booking
}

func (f *fakeBookingStore) CreateFromCheckout(ctx context.Context, b *model.Booking) (bool, error) {
	f.lastSaved = b
	b.ID = 101
	return f.created, f.createErr
}

func (f *fakeBookingStore) CountPaidByCustomer(ctx context.Context, tenantID int64, email string) (int, error) {
	return f.paidCount, f.countErr
}

type fakeTenantStore struct {
	subscriptionID  string
	paymentsEnabled *bool
}

func (f *fakeTenantStore) UpdateSubscription(ctx context.Context, tenantID int64, subscriptionID string) error {
	f.subscriptionID = subscriptionID
	return nil
}

func (f *fakeTenantStore) SetPaymentsEnabled(ctx context.Context, tenantID int64, enabled bool) error {
	f.paymentsEnabled = &enabled
	return nil
}

type fakeResolver struct {
	resolved map[model.NotificationKind]*resolve.Resolved
	err      error
}

func (f *fakeResolver) Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*resolve.Resolved, error) {
	if f.err != nil {
		return nil, f.err
	}
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

func resolvedFor(kinds ...model.NotificationKind) map[model.NotificationKind]*resolve.Resolved {
	out := make(map[model.NotificationKind]*resolve.Resolved, len(kinds))
	for _, kind := range kinds {
		out[kind] = &resolve.Resolved{
			Template: &model.NotificationTemplate{
				Kind:    kind,
				Subject: "Hi {{customerName}}",
			},
			Branding: &model.Branding{
				DisplayName:  "Sunways",
				ContactEmail: "office@sunways.example",
			},
		}
	}
	return out
}

func bookingCheckout() *webhook.BookingCheckout {
	return &webhook.BookingCheckout{
		SessionID:     "cs_1",
		TenantID:      7,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Destination:   "Paris",
		DepartureDate: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2026, 9, 19, 0, 0, 0, 0, time.UTC),
		Persons:       2,
		TotalCents:    150000,
		Currency:      "eur",
	}
}

func TestHandleBookingCheckoutSendsConfirmations(t *testing.T) {
	bookings := &fakeBookingStore{created: true, paidCount: 2}
	mailer := &fakeMailer{}
	resolver := &fakeResolver{resolved: resolvedFor(
		model.KindBookingConfirmationCustomer,
		model.KindBookingConfirmationAgency,
	)}

	svc := NewService(bookings, &fakeTenantStore{}, resolver, mailer, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:    webhook.TypeCheckoutCompleted,
		Booking: bookingCheckout(),
	})
	require.NoError(t, err)

	require.NotNil(t, bookings.lastSaved)
	assert.Equal(t, model.PaymentStatusPaid, bookings.lastSaved.PaymentStatus)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ana@example.com", mailer.sent[0].To)
	assert.Equal(t, "Hi Ana", mailer.sent[0].Content.Subject)
	assert.Equal(t, "office@sunways.example", mailer.sent[1].To)
}

func TestHandleBookingCheckoutDuplicateSendsNothing(t *testing.T) {
	bookings := &fakeBookingStore{created: false}
	mailer := &fakeMailer{}
	resolver := &fakeResolver{resolved: resolvedFor(model.KindBookingConfirmationCustomer)}

	svc := NewService(bookings, &fakeTenantStore{}, resolver, mailer, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:    webhook.TypeCheckoutCompleted,
		Booking: bookingCheckout(),
	})
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestHandleBookingCheckoutPersistFailurePropagates(t *testing.T) {
	bookings := &fakeBookingStore{createErr: errors.New("connection refused")}
	mailer := &fakeMailer{}

	svc := NewService(bookings, &fakeTenantStore{}, &fakeResolver{}, mailer, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:    webhook.TypeCheckoutCompleted,
		Booking: bookingCheckout(),
	})
	require.Error(t, err)
	assert.Empty(t, mailer.sent)
}

func TestWelcomeSentOnlyForFirstBooking(t *testing.T) {
	resolver := &fakeResolver{resolved: resolvedFor(
		model.KindBookingConfirmationCustomer,
		model.KindWelcome,
	)}

	first := &fakeBookingStore{created: true, paidCount: 1}
	firstMailer := &fakeMailer{}
	svc := NewService(first, &fakeTenantStore{}, resolver, firstMailer, zap.NewNop())
	require.NoError(t, svc.HandleEvent(context.Background(), &webhook.Event{
		Type: webhook.TypeCheckoutCompleted, Booking: bookingCheckout(),
	}))

	kinds := make([]model.NotificationKind, 0, len(firstMailer.sent))
	for _, e := range firstMailer.sent {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, model.KindWelcome)

	second := &fakeBookingStore{created: true, paidCount: 2}
	secondMailer := &fakeMailer{}
	svc = NewService(second, &fakeTenantStore{}, resolver, secondMailer, zap.NewNop())
	require.NoError(t, svc.HandleEvent(context.Background(), &webhook.Event{
		Type: webhook.TypeCheckoutCompleted, Booking: bookingCheckout(),
	}))

	for _, e := range secondMailer.sent {
		assert.NotEqual(t, model.KindWelcome, e.Kind)
	}
}

func TestDispatchFailureDoesNotFailEvent(t *testing.T) {
	bookings := &fakeBookingStore{created: true, paidCount: 2}
	mailer := &fakeMailer{sendErr: errors.New("provider down")}
	resolver := &fakeResolver{resolved: resolvedFor(model.KindBookingConfirmationCustomer)}

	svc := NewService(bookings, &fakeTenantStore{}, resolver, mailer, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:    webhook.TypeCheckoutCompleted,
		Booking: bookingCheckout(),
	})
	assert.NoError(t, err)
}

func TestAgencyConfirmationSkippedWithoutContactEmail(t *testing.T) {
	resolved := resolvedFor(model.KindBookingConfirmationAgency)
	resolved[model.KindBookingConfirmationAgency].Branding.ContactEmail = ""

	bookings := &fakeBookingStore{created: true, paidCount: 2}
	mailer := &fakeMailer{}
	svc := NewService(bookings, &fakeTenantStore{}, &fakeResolver{resolved: resolved}, mailer, zap.NewNop())

	require.NoError(t, svc.HandleEvent(context.Background(), &webhook.Event{
		Type: webhook.TypeCheckoutCompleted, Booking: bookingCheckout(),
	}))
	assert.Empty(t, mailer.sent)
}

func TestHandleSubscriptionCheckout(t *testing.T) {
	tenants := &fakeTenantStore{}
	svc := NewService(&fakeBookingStore{}, tenants, &fakeResolver{}, &fakeMailer{}, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:         webhook.TypeCheckoutCompleted,
		Subscription: &webhook.SubscriptionCheckout{TenantID: 3, SubscriptionID: "sub_9"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_9", tenants.subscriptionID)
}

func TestHandleAccountUpdated(t *testing.T) {
	tenants := &fakeTenantStore{}
	svc := NewService(&fakeBookingStore{}, tenants, &fakeResolver{}, &fakeMailer{}, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{
		Type:    webhook.TypeAccountUpdated,
		Account: &webhook.AccountUpdate{TenantID: 5, PaymentsEnabled: true},
	})
	require.NoError(t, err)
	require.NotNil(t, tenants.paymentsEnabled)
	assert.True(t, *tenants.paymentsEnabled)
}

func TestUnknownEventIgnored(t *testing.T) {
	svc := NewService(&fakeBookingStore{}, &fakeTenantStore{}, &fakeResolver{}, &fakeMailer{}, zap.NewNop())

	err := svc.HandleEvent(context.Background(), &webhook.Event{Type: "invoice.paid"})
	assert.NoError(t, err)
}
