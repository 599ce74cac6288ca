package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event types emitted by the payment processor that this pipeline reacts to.
const (
	TypeCheckoutCompleted = "checkout.session.completed"
	TypeAccountUpdated    = "account.updated"
)

// Checkout kinds carried in session metadata.
const (
	CheckoutKindBooking      = "booking"
	CheckoutKindSubscription = "subscription"
)

// envelope is the processor's wire format. Metadata is a flat string map; the
// parser converts it into a strict internal event so nothing downstream has to
// trust field presence.
type envelope struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID           string            `json:"id"`
			Metadata     map[string]string `json:"metadata"`
			Subscription string            `json:"subscription"`
			AmountTotal  int64             `json:"amount_total"`
			Currency     string            `json:"currency"`
			CustomerDetails struct {
				Name  string `json:"name"`
				Email string `json:"email"`
				Phone string `json:"phone"`
			} `json:"customer_details"`
			ChargesEnabled bool `json:"charges_enabled"`
		} `json:"object"`
	} `json:"data"`
}

// BookingCheckout is a completed checkout that should become a Booking.
type BookingCheckout struct {
	SessionID     string
	TenantID      int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time
	Persons       int
	TotalCents    int64
	Currency      string
}

// SubscriptionCheckout updates a tenant's subscription reference.
type SubscriptionCheckout struct {
	TenantID       int64
	SubscriptionID string
}

// AccountUpdate toggles a tenant's payment capability.
type AccountUpdate struct {
	TenantID        int64
	PaymentsEnabled bool
}

// Event is the tagged union produced at the ingest boundary. Exactly one of
// the pointers is set; Unknown events carry only the raw type.
type Event struct {
	Type         string
	Booking      *BookingCheckout
	Subscription *SubscriptionCheckout
	Account      *AccountUpdate
}

// Parse decodes a verified payload into a strict internal event.
func Parse(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	obj := env.Data.Object
	switch env.Type {
	case TypeCheckoutCompleted:
		tenantID, err := metaInt64(obj.Metadata, "tenant_id")
		if err != nil {
			return nil, err
		}

		if obj.Metadata["kind"] == CheckoutKindSubscription {
			return &Event{
				Type: env.Type,
				Subscription: &SubscriptionCheckout{
					TenantID:       tenantID,
					SubscriptionID: obj.Subscription,
				},
			}, nil
		}

		departure, err := metaDate(obj.Metadata, "departure_date")
		if err != nil {
			return nil, err
		}
		ret, err := metaDate(obj.Metadata, "return_date")
		if err != nil {
			return nil, err
		}
		persons, err := metaInt(obj.Metadata, "persons")
		if err != nil {
			return nil, err
		}
		if obj.ID == "" {
			return nil, fmt.Errorf("checkout event missing session id")
		}

		name := obj.CustomerDetails.Name
		if name == "" {
			name = obj.Metadata["customer_name"]
		}
		email := obj.CustomerDetails.Email
		if email == "" {
			email = obj.Metadata["customer_email"]
		}

		return &Event{
			Type: env.Type,
			Booking: &BookingCheckout{
				SessionID:     obj.ID,
				TenantID:      tenantID,
				CustomerName:  name,
				CustomerEmail: email,
				CustomerPhone: obj.CustomerDetails.Phone,
				Destination:   obj.Metadata["destination"],
				DepartureDate: departure,
				ReturnDate:    ret,
				Persons:       persons,
				TotalCents:    obj.AmountTotal,
				Currency:      obj.Currency,
			},
		}, nil

	case TypeAccountUpdated:
		tenantID, err := metaInt64(obj.Metadata, "tenant_id")
		if err != nil {
			return nil, err
		}
		return &Event{
			Type: env.Type,
			Account: &AccountUpdate{
				TenantID:        tenantID,
				PaymentsEnabled: obj.ChargesEnabled,
			},
		}, nil

	default:
		return &Event{Type: env.Type}, nil
	}
}

func metaInt64(meta map[string]string, key string) (int64, error) {
	raw, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("event metadata missing %q", key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("event metadata %q is not an integer: %w", key, err)
	}
	return v, nil
}

func metaInt(meta map[string]string, key string) (int, error) {
	v, err := metaInt64(meta, key)
	return int(v), err
}

func metaDate(meta map[string]string, key string) (time.Time, error) {
	raw, ok := meta[key]
	if !ok {
		return time.Time{}, fmt.Errorf("event metadata missing %q", key)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("event metadata %q is not a date: %w", key, err)
	}
	return t, nil
}
