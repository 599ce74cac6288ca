package model

import "time"

// Payment status values a booking can carry. Only the ingestor sets paid;
// staff move bookings between the remaining states.
const (
	PaymentStatusPaid      = "paid"
	PaymentStatusPending   = "pending"
	PaymentStatusReviewed  = "reviewed"
	PaymentStatusCancelled = "cancelled"
)

// Booking is a persisted reservation created from a completed checkout event.
// (TenantID, SessionID) is unique at the storage level; ReminderSent and
// FollowupSent only ever move false -> true.
type Booking struct {
	ID            int64
	TenantID      int64
	SessionID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time
	Persons       int
	TotalCents    int64
	Currency      string
	PaymentStatus string
	ReminderSent  bool
	FollowupSent  bool
	CreatedAt     time.Time
}
