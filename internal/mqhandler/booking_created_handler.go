package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "bookingcore/contracts/mq"
	"bookingcore/internal/model"
	"bookingcore/internal/repository"
	"bookingcore/pkg/util"
	"bookingcore/internal/service/render"
)

// BookingCreatedHandler turns booking.created events into an in-app
// notification for the agency's staff feed.
type BookingCreatedHandler struct {
	notifications *repository.NotificationRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewBookingCreatedHandler(
	notifications *repository.NotificationRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *BookingCreatedHandler {
	return &BookingCreatedHandler{
		notifications: notifications,
		deduper:       deduper,
		logger:        logger,
	}
}

func (h *BookingCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.BookingCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal BookingCreatedPayload", zap.Error(err))
		return err
	}

	// MQ redeliveries are expected; the booking id scopes the once-guard.
	if !h.deduper.AcquireOnce(ctx, "booking.created", p.BookingID) {
		return nil
	}

	notification := &model.Notification{
		TenantID: p.TenantID,
		Kind:     "booking_created",
		Title:    fmt.Sprintf("New booking: %s", p.Destination),
		Description: fmt.Sprintf("%s booked %s (%d persons, %s), departing %s",
			p.CustomerName,
			p.Destination,
			p.Persons,
			render.FormatAmount(p.TotalCents, p.Currency),
			p.DepartureDate,
		),
	}

	if _, err := h.notifications.Insert(ctx, notification); err != nil {
		h.logger.Error("Failed to insert booking notification",
			zap.Int64("booking_id", p.BookingID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Booking notification created",
		zap.Int64("booking_id", p.BookingID),
		zap.Int64("tenant_id", p.TenantID),
	)
	return nil
}
