package mq

import "time"

// BookingCreatedPayload is published when the ingestor materializes a booking.
type BookingCreatedPayload struct {
	BookingID     int64     `json:"booking_id"`
	TenantID      int64     `json:"tenant_id"`
	SessionID     string    `json:"session_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date"`
	ReturnDate    string    `json:"return_date"`
	Persons       int       `json:"persons"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}
