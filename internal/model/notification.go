package model

import "time"

// Notification is an in-app alert shown to agency staff. Only the recipient
// flips IsRead.
type Notification struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
