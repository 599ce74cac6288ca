package dispatch

import (
	"context"

	"bookingcore/internal/model"
	"bookingcore/internal/service/render"
)

// Email is one outbound message: a rendered template plus its recipient.
type Email struct {
	To      string
	ToName  string
	Kind    model.NotificationKind
	Content render.Rendered
}

// Mailer delivers rendered notifications through the external
// transactional-email provider. Implementations must be safe for concurrent
// use; the scanner sends from a worker pool.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}
