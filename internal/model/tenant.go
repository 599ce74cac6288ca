package model

import "time"

// Tenant is one agency on the platform.
type Tenant struct {
	ID                 int64
	Name               string
	ContactEmail       string
	SubscriptionID     string
	SubscriptionStatus string
	PaymentsEnabled    bool
	CreatedAt          time.Time
}
