package mq

// NotificationCreatedPayload asks the worker to create an in-app notification.
type NotificationCreatedPayload struct {
	TenantID    int64  `json:"tenant_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
	// DedupID scopes the worker-side once-guard; usually the source row id.
	DedupID int64 `json:"dedup_id"`
}
