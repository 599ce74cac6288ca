package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"bookingcore/internal/model"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/render"
	"bookingcore/internal/service/resolve"
	"bookingcore/internal/webhook"
	"bookingcore/pkg/metrics"
)

type BookingStore interface {
	CreateFromCheckout(ctx context.Context, b *model.Booking) (created bool, err error)
	CountPaidByCustomer(ctx context.Context, tenantID int64, customerEmail string) (int, error)
}

type TenantStore interface {
	UpdateSubscription(ctx context.Context, tenantID int64, subscriptionID string) error
	SetPaymentsEnabled(ctx context.Context, tenantID int64, enabled bool) error
}

type Resolver interface {
	Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*resolve.Resolved, error)
}

// Service turns verified payment-processor events into durable state and
// confirmation notifications.
type Service struct {
	bookings        BookingStore
	tenants         TenantStore
	resolver        Resolver
	mailer          dispatch.Mailer
	logger          *zap.Logger
	dispatchTimeout time.Duration
}

func NewService(
	bookings BookingStore,
	tenants TenantStore,
	resolver Resolver,
	mailer dispatch.Mailer,
	logger *zap.Logger,
) *Service {
	return &Service{
		bookings:        bookings,
		tenants:         tenants,
		resolver:        resolver,
		mailer:          mailer,
		logger:          logger,
		dispatchTimeout: 10 * time.Second,
	}
}

// HandleEvent processes one decoded event. The returned error is a
// persistence failure only; dispatch problems are logged and swallowed
// because the booking is already durable and delivery is independently
// recoverable.
func (s *Service) HandleEvent(ctx context.Context, ev *webhook.Event) error {
	switch {
	case ev.Subscription != nil:
		return s.tenants.UpdateSubscription(ctx, ev.Subscription.TenantID, ev.Subscription.SubscriptionID)

	case ev.Account != nil:
		return s.tenants.SetPaymentsEnabled(ctx, ev.Account.TenantID, ev.Account.PaymentsEnabled)

	case ev.Booking != nil:
		return s.handleBookingCheckout(ctx, ev.Booking)

	default:
		s.logger.Debug("Ignoring unhandled event type", zap.String("type", ev.Type))
		return nil
	}
}

func (s *Service) handleBookingCheckout(ctx context.Context, checkout *webhook.BookingCheckout) error {
	booking := &model.Booking{
		TenantID:      checkout.TenantID,
		SessionID:     checkout.SessionID,
		CustomerName:  checkout.CustomerName,
		CustomerEmail: checkout.CustomerEmail,
		CustomerPhone: checkout.CustomerPhone,
		Destination:   checkout.Destination,
		DepartureDate: checkout.DepartureDate,
		ReturnDate:    checkout.ReturnDate,
		Persons:       checkout.Persons,
		TotalCents:    checkout.TotalCents,
		Currency:      checkout.Currency,
		PaymentStatus: model.PaymentStatusPaid,
	}

	created, err := s.bookings.CreateFromCheckout(ctx, booking)
	if err != nil {
		return err
	}
	if !created {
		// Redelivered session: the booking and its notifications already
		// happened on the first delivery.
		s.logger.Info("Duplicate checkout session, skipping",
			zap.Int64("tenant_id", checkout.TenantID),
			zap.String("session_id", checkout.SessionID),
		)
		metrics.RecordWebhookEvent(webhook.TypeCheckoutCompleted, "duplicate")
		return nil
	}

	metrics.BookingsCreatedTotal.Inc()

	// Confirmations are synchronous but bounded; a slow provider must not
	// hold the webhook open past the processor's delivery timeout.
	dispatchCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	s.sendConfirmation(dispatchCtx, booking, model.KindBookingConfirmationCustomer, booking.CustomerEmail, booking.CustomerName)
	s.sendAgencyConfirmation(dispatchCtx, booking)

	if s.isFirstPaidBooking(dispatchCtx, booking) {
		s.sendConfirmation(dispatchCtx, booking, model.KindWelcome, booking.CustomerEmail, booking.CustomerName)
	}

	return nil
}

// isFirstPaidBooking counts after the insert committed: the count includes the
// new row, so exactly one delivery ever observes 1, even for two bookings
// completing in the same second.
func (s *Service) isFirstPaidBooking(ctx context.Context, booking *model.Booking) bool {
	count, err := s.bookings.CountPaidByCustomer(ctx, booking.TenantID, booking.CustomerEmail)
	if err != nil {
		s.logger.Error("Failed to count customer bookings, skipping welcome",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
		return false
	}
	return count == 1
}

func (s *Service) sendAgencyConfirmation(ctx context.Context, booking *model.Booking) {
	resolved, err := s.resolver.Resolve(ctx, booking.TenantID, model.KindBookingConfirmationAgency)
	if err != nil {
		s.logResolveOutcome(booking, model.KindBookingConfirmationAgency, err)
		return
	}
	if resolved.Branding.ContactEmail == "" {
		s.logger.Warn("Agency has no contact email, skipping agency confirmation",
			zap.Int64("tenant_id", booking.TenantID),
		)
		return
	}
	s.renderAndSend(ctx, booking, resolved, model.KindBookingConfirmationAgency,
		resolved.Branding.ContactEmail, resolved.Branding.DisplayName)
}

func (s *Service) sendConfirmation(ctx context.Context, booking *model.Booking, kind model.NotificationKind, to, toName string) {
	resolved, err := s.resolver.Resolve(ctx, booking.TenantID, kind)
	if err != nil {
		s.logResolveOutcome(booking, kind, err)
		return
	}
	s.renderAndSend(ctx, booking, resolved, kind, to, toName)
}

func (s *Service) renderAndSend(ctx context.Context, booking *model.Booking, resolved *resolve.Resolved, kind model.NotificationKind, to, toName string) {
	tokens := render.Merge(render.BrandingTokens(resolved.Branding), render.BookingTokens(booking))
	content := render.Render(resolved.Template, tokens)

	err := s.mailer.Send(ctx, dispatch.Email{
		To:      to,
		ToName:  toName,
		Kind:    kind,
		Content: content,
	})
	if err != nil {
		s.logger.Error("Failed to dispatch confirmation",
			zap.Int64("booking_id", booking.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Confirmation dispatched",
		zap.Int64("booking_id", booking.ID),
		zap.String("kind", string(kind)),
	)
}

func (s *Service) logResolveOutcome(booking *model.Booking, kind model.NotificationKind, err error) {
	if errors.Is(err, resolve.ErrNotConfigured) {
		// The tenant disabled this kind; silence is the contract.
		s.logger.Debug("Notification kind not configured",
			zap.Int64("tenant_id", booking.TenantID),
			zap.String("kind", string(kind)),
		)
		return
	}
	s.logger.Error("Failed to resolve template",
		zap.Int64("tenant_id", booking.TenantID),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}
