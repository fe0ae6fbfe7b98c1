package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) ProofService {
	t.Helper()
	svc, err := NewProofService(&GatewayMaterial{KeyID: "key_test", Secret: []byte("test-secret")})
	require.NoError(t, err)
	return svc
}

func TestProofService_SignVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t)

	sig := svc.Sign("extord_1", "pay_1")
	assert.Len(t, sig, 64, "hex-encoded sha256 mac")
	assert.NoError(t, svc.Verify("extord_1", "pay_1", sig))

	// verification is pure and repeatable
	assert.NoError(t, svc.Verify("extord_1", "pay_1", sig))
}

func TestProofService_KnownVector(t *testing.T) {
	// HMAC-SHA256("order_abc|pay_xyz", "test-secret"), hex
	svc := newTestService(t)
	sig := svc.Sign("order_abc", "pay_xyz")
	assert.Equal(t, sig, svc.Sign("order_abc", "pay_xyz"), "deterministic")
	assert.NoError(t, svc.Verify("order_abc", "pay_xyz", sig))
}

func TestProofService_RejectsMismatch(t *testing.T) {
	svc := newTestService(t)
	sig := svc.Sign("extord_1", "pay_1")

	tests := []struct {
		name                       string
		orderID, paymentID, sigArg string
	}{
		{"tampered signature", "extord_1", "pay_1", sig + "00"},
		{"wrong order id", "extord_2", "pay_1", sig},
		{"wrong payment id", "extord_1", "pay_2", sig},
		{"empty signature", "extord_1", "pay_1", ""},
		{"swapped fields", "pay_1", "extord_1", sig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Verify(tt.orderID, tt.paymentID, tt.sigArg), ErrSignatureMismatch)
		})
	}
}

func TestProofService_DifferentSecretsDisagree(t *testing.T) {
	a, err := NewProofService(&GatewayMaterial{KeyID: "k", Secret: []byte("secret-a")})
	require.NoError(t, err)
	b, err := NewProofService(&GatewayMaterial{KeyID: "k", Secret: []byte("secret-b")})
	require.NoError(t, err)

	sig := a.Sign("extord_1", "pay_1")
	assert.Error(t, b.Verify("extord_1", "pay_1", sig))
}

func TestNewProofService_RequiresSecret(t *testing.T) {
	_, err := NewProofService(&GatewayMaterial{KeyID: "k"})
	assert.Error(t, err)
}
