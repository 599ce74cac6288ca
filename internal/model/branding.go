package model

// Branding is a tenant's display identity; its fields double as default token
// values during rendering.
type Branding struct {
	TenantID     int64
	DisplayName  string
	LogoURL      string
	PrimaryColor string
	ContactEmail string
	ContactPhone string
}
