package render

import (
	"fmt"
	"strings"

	"bookingcore/internal/model"
)

// Rendered is the shared notification contract handed to dispatch: the output
// of substituting tokens into one template.
type Rendered struct {
	Subject string
	HTML    string
	CTAText string
	CTAURL  string
}

// Tokens is a flat token map. Values are substituted as plain text, never
// evaluated; template bodies are tenant-authored trusted content.
type Tokens map[string]string

// Render substitutes {{tokenName}} placeholders across subject, body and CTA
// url. Placeholders without a matching token are left verbatim so a template
// referencing a missing token degrades visibly instead of failing the send.
func Render(t *model.NotificationTemplate, tokens Tokens) Rendered {
	return Rendered{
		Subject: substitute(t.Subject, tokens),
		HTML:    substitute(t.HTMLBody, tokens),
		CTAText: substitute(t.CTAText, tokens),
		CTAURL:  substitute(t.CTAURL, tokens),
	}
}

// Substitute applies the token map to a single string. Exposed for callers
// that render free-form text (task titles, staff alerts) rather than a full
// template.
func Substitute(s string, tokens Tokens) string {
	return substitute(s, tokens)
}

func substitute(s string, tokens Tokens) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	for name, value := range tokens {
		s = strings.ReplaceAll(s, "{{"+name+"}}", value)
	}
	return s
}

// Merge overlays call-site tokens on top of base tokens (branding defaults).
func Merge(base, overlay Tokens) Tokens {
	merged := make(Tokens, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// BrandingTokens exposes a tenant's branding as default token values.
func BrandingTokens(b *model.Branding) Tokens {
	if b == nil {
		return Tokens{}
	}
	return Tokens{
		"clientName":   b.DisplayName,
		"logoUrl":      b.LogoURL,
		"primaryColor": b.PrimaryColor,
		"contactEmail": b.ContactEmail,
		"contactPhone": b.ContactPhone,
	}
}

// BookingTokens exposes a booking's fields as call-site tokens.
func BookingTokens(b *model.Booking) Tokens {
	return Tokens{
		"customerName":  b.CustomerName,
		"destination":   b.Destination,
		"departureDate": b.DepartureDate.Format("02 Jan 2006"),
		"returnDate":    b.ReturnDate.Format("02 Jan 2006"),
		"persons":       fmt.Sprintf("%d", b.Persons),
		"total":         FormatAmount(b.TotalCents, b.Currency),
	}
}

// FormatAmount renders a cent amount as "123.45 EUR".
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
