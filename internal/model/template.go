package model

import "time"

// NotificationKind identifies what a template is for.
type NotificationKind string

const (
	KindBookingConfirmationCustomer NotificationKind = "booking_confirmation_customer"
	KindBookingConfirmationAgency   NotificationKind = "booking_confirmation_agency"
	KindWelcome                     NotificationKind = "welcome"
	KindPreDepartureReminder        NotificationKind = "pre_departure_reminder"
	KindPostReturnFollowup          NotificationKind = "post_return_followup"
)

// NotificationTemplate is tenant-authored content for one notification kind.
// At most one active template exists per (tenant, kind).
type NotificationTemplate struct {
	ID        int64
	TenantID  int64
	Kind      NotificationKind
	Subject   string
	HTMLBody  string
	CTAText   string
	CTAURL    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
