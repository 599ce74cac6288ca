package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "bookingcore/contracts/mq"
	"bookingcore/internal/model"
	"bookingcore/internal/repository"
	"bookingcore/pkg/util"
)

// NotificationCreatedHandler materializes notification.created events
// (automation notify_staff actions) into Notification rows.
type NotificationCreatedHandler struct {
	notifications *repository.NotificationRepository
	deduper       *util.Deduper
	logger        *zap.Logger
}

func NewNotificationCreatedHandler(
	notifications *repository.NotificationRepository,
	deduper *util.Deduper,
	logger *zap.Logger,
) *NotificationCreatedHandler {
	return &NotificationCreatedHandler{
		notifications: notifications,
		deduper:       deduper,
		logger:        logger,
	}
}

func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal NotificationCreatedPayload", zap.Error(err))
		return err
	}

	if !h.deduper.AcquireOnce(ctx, "notification.created:"+p.Kind, p.DedupID) {
		return nil
	}

	notification := &model.Notification{
		TenantID:    p.TenantID,
		Kind:        p.Kind,
		Title:       p.Title,
		Description: p.Description,
		Link:        p.Link,
	}

	if _, err := h.notifications.Insert(ctx, notification); err != nil {
		h.logger.Error("Failed to insert notification",
			zap.Int64("tenant_id", p.TenantID),
			zap.String("kind", p.Kind),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Notification created",
		zap.Int64("tenant_id", p.TenantID),
		zap.String("kind", p.Kind),
	)
	return nil
}
