package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "bookingcore/contracts/mq"
	"bookingcore/internal/model"
	"bookingcore/pkg/outbox"
)

type BookingRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewBookingRepository(db *pgxpool.Pool, logger *zap.Logger) *BookingRepository {
	return &BookingRepository{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

const bookingColumns = `id, tenant_id, session_id, customer_name, customer_email, customer_phone,
	destination, departure_date, return_date, persons, total_cents, currency,
	payment_status, reminder_sent, followup_sent, created_at`

// CreateFromCheckout inserts the booking and its booking.created outbox event
// in one transaction. The (tenant_id, session_id) uniqueness lives in the
// database, so concurrent redelivery of the same checkout event can never
// produce a second row: the loser of the race sees created=false.
func (r *BookingRepository) CreateFromCheckout(ctx context.Context, b *model.Booking) (created bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO bookings (tenant_id, session_id, customer_name, customer_email, customer_phone,
			destination, departure_date, return_date, persons, total_cents, currency, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, session_id) DO NOTHING
		RETURNING id, created_at
	`

	rows, err := tx.Query(ctx, query,
		b.TenantID,
		b.SessionID,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerPhone,
		b.Destination,
		b.DepartureDate,
		b.ReturnDate,
		b.Persons,
		b.TotalCents,
		b.Currency,
		b.PaymentStatus,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert booking: %w", err)
	}

	inserted := false
	for rows.Next() {
		if err := rows.Scan(&b.ID, &b.CreatedAt); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan booking: %w", err)
		}
		inserted = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to insert booking: %w", err)
	}

	if !inserted {
		// Conflict: the session was already materialized. Nothing to commit.
		return false, nil
	}

	payload := mqcontracts.BookingCreatedPayload{
		BookingID:     b.ID,
		TenantID:      b.TenantID,
		SessionID:     b.SessionID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Destination:   b.Destination,
		DepartureDate: b.DepartureDate.Format("2006-01-02"),
		ReturnDate:    b.ReturnDate.Format("2006-01-02"),
		Persons:       b.Persons,
		TotalCents:    b.TotalCents,
		Currency:      b.Currency,
		CreatedAt:     b.CreatedAt,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "booking", &b.ID, "booking.created", payload); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit booking: %w", err)
	}

	r.logger.Info("Booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("tenant_id", b.TenantID),
		zap.String("session_id", b.SessionID),
	)
	return true, nil
}

// CountPaidByCustomer counts a customer's paid bookings for a tenant.
func (r *BookingRepository) CountPaidByCustomer(ctx context.Context, tenantID int64, customerEmail string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE tenant_id = $1 AND customer_email = $2 AND payment_status = 'paid'
	`
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, customerEmail).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// ListDueForReminder returns paid bookings whose departure date has entered
// the reminder window and whose reminder flag is still false. The lower bound
// keeps a late-added template from backfilling arbitrarily old bookings.
func (r *BookingRepository) ListDueForReminder(ctx context.Context, target, floor time.Time) ([]model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = 'paid'
		AND reminder_sent = FALSE
		AND departure_date <= $1::date
		AND departure_date >= $2::date
		ORDER BY tenant_id, id
	`
	return r.listBookings(ctx, query, target, floor)
}

// ListDueForFollowup is the post-return counterpart of ListDueForReminder.
func (r *BookingRepository) ListDueForFollowup(ctx context.Context, target, floor time.Time) ([]model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE payment_status = 'paid'
		AND followup_sent = FALSE
		AND return_date <= $1::date
		AND return_date >= $2::date
		ORDER BY tenant_id, id
	`
	return r.listBookings(ctx, query, target, floor)
}

// ListCreatedOn returns bookings created on the given calendar day.
func (r *BookingRepository) ListCreatedOn(ctx context.Context, day time.Time) ([]model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE created_at::date = $1::date
		ORDER BY id
	`
	return r.listBookings(ctx, query, day)
}

// MarkReminderSent flips the reminder flag, but only if it is still false.
// Returns whether this call won the flip; overlapping scans lose here.
func (r *BookingRepository) MarkReminderSent(ctx context.Context, bookingID int64) (bool, error) {
	return r.markFlag(ctx, "reminder_sent", bookingID)
}

// MarkFollowupSent flips the follow-up flag, but only if it is still false.
func (r *BookingRepository) MarkFollowupSent(ctx context.Context, bookingID int64) (bool, error) {
	return r.markFlag(ctx, "followup_sent", bookingID)
}

func (r *BookingRepository) markFlag(ctx context.Context, column string, bookingID int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE bookings SET %s = TRUE WHERE id = $1 AND %s = FALSE`, column, column)
	tag, err := r.db.Exec(ctx, query, bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s: %w", column, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BookingRepository) listBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		err := rows.Scan(
			&b.ID,
			&b.TenantID,
			&b.SessionID,
			&b.CustomerName,
			&b.CustomerEmail,
			&b.CustomerPhone,
			&b.Destination,
			&b.DepartureDate,
			&b.ReturnDate,
			&b.Persons,
			&b.TotalCents,
			&b.Currency,
			&b.PaymentStatus,
			&b.ReminderSent,
			&b.FollowupSent,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}
