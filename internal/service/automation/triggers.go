package automation

import (
	"context"
	"strconv"
	"time"

	"bookingcore/internal/model"
	"bookingcore/internal/service/render"
)

type TenantSource interface {
	ListCreatedOn(ctx context.Context, day time.Time) ([]model.Tenant, error)
	ListCancelledOn(ctx context.Context, day time.Time) ([]model.Tenant, error)
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]model.Tenant, error)
}

type BookingSource interface {
	ListCreatedOn(ctx context.Context, day time.Time) ([]model.Booking, error)
}

// Triggers bundles the repository-backed evaluators for the built-in rule
// trigger kinds.
type Triggers struct {
	tenants  TenantSource
	bookings BookingSource
}

func NewTriggers(tenants TenantSource, bookings BookingSource) *Triggers {
	return &Triggers{tenants: tenants, bookings: bookings}
}

// Register wires all built-in trigger kinds into the engine.
func (t *Triggers) Register(engine *Engine) {
	engine.RegisterTrigger("tenant_signup", t.TenantSignup)
	engine.RegisterTrigger("booking_created", t.BookingCreated)
	engine.RegisterTrigger("subscription_cancelled", t.SubscriptionCancelled)
	engine.RegisterTrigger("tenant_inactive", t.TenantInactive)
}

// TenantSignup matches tenants who signed up "days_ago" days before the run
// (default 0, the day of the run itself).
func (t *Triggers) TenantSignup(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
	day := now.AddDate(0, 0, -configDays(cfg, "days_ago", 0))
	tenants, err := t.tenants.ListCreatedOn(ctx, day)
	if err != nil {
		return nil, err
	}
	return tenantMatches(tenants), nil
}

// BookingCreated matches bookings created on the day of the run. The action
// targets the booking's customer, not the tenant.
func (t *Triggers) BookingCreated(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
	day := now.AddDate(0, 0, -configDays(cfg, "days_ago", 0))
	bookings, err := t.bookings.ListCreatedOn(ctx, day)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		matches = append(matches, Match{
			EntityID: b.ID,
			TenantID: b.TenantID,
			Email:    b.CustomerEmail,
			Name:     b.CustomerName,
			Tokens:   render.BookingTokens(b),
		})
	}
	return matches, nil
}

// SubscriptionCancelled matches tenants whose subscription was cancelled on
// the day of the run.
func (t *Triggers) SubscriptionCancelled(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
	day := now.AddDate(0, 0, -configDays(cfg, "days_ago", 0))
	tenants, err := t.tenants.ListCancelledOn(ctx, day)
	if err != nil {
		return nil, err
	}
	return tenantMatches(tenants), nil
}

// TenantInactive matches tenants with no booking in the last "days" days
// (default 30).
func (t *Triggers) TenantInactive(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
	cutoff := now.AddDate(0, 0, -configDays(cfg, "days", 30))
	tenants, err := t.tenants.ListInactiveSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	return tenantMatches(tenants), nil
}

func tenantMatches(tenants []model.Tenant) []Match {
	matches := make([]Match, 0, len(tenants))
	for i := range tenants {
		t := &tenants[i]
		matches = append(matches, Match{
			EntityID: t.ID,
			TenantID: t.ID,
			Email:    t.ContactEmail,
			Name:     t.Name,
			Tokens: render.Tokens{
				"clientName":   t.Name,
				"contactEmail": t.ContactEmail,
			},
		})
	}
	return matches
}

func configDays(cfg map[string]string, key string, fallback int) int {
	raw, ok := cfg[key]
	if !ok {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return fallback
	}
	return days
}
