package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte("{"), &struct{}{})

	cases := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json decode", jsonErr, false, "json_decode_error"},
		{"no rows", pgx.ErrNoRows, false, "row_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "bookings_tenant_id_session_id_key"`), false, "duplicate_key"},
		{"db connection", errors.New("failed to connect: connection refused"), true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"provider 5xx", fmt.Errorf("mail provider 5xx: %d", 503), true, "provider_error"},
		{"provider unreachable", errors.New("failed to call mail provider: dial tcp"), true, "provider_unavailable"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tc.err)
			assert.Equal(t, tc.retryable, retryable)
			assert.Equal(t, tc.errType, errType)
		})
	}
}
