package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignatureRoundTrip(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"checkout.session.completed"}`)

	sig := Sign(secret, body)

	assert.True(t, VerifySignature(secret, body, sig))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "whsec_test"
	sig := Sign(secret, []byte(`{"amount_total":100}`))

	assert.False(t, VerifySignature(secret, []byte(`{"amount_total":100000}`), sig))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	sig := Sign("secret-a", body)

	assert.False(t, VerifySignature("secret-b", body, sig))
}

func TestVerifySignatureRejectsEmptyInputs(t *testing.T) {
	body := []byte(`{}`)

	assert.False(t, VerifySignature("", body, Sign("", body)))
	assert.False(t, VerifySignature("secret", body, ""))
}
