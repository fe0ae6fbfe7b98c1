package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrSignatureMismatch = errors.New("signature mismatch")

// ProofService signs and verifies payment proofs. The gateway signs the
// canonical string externalOrderID|externalPaymentID with the shared key
// secret; we recompute and compare in constant time. Pure, no I/O.
type ProofService interface {
	Sign(externalOrderID, externalPaymentID string) string
	Verify(externalOrderID, externalPaymentID, signature string) error
}

type proofService struct {
	secret []byte
}

func NewProofService(m *GatewayMaterial) (ProofService, error) {
	if len(m.Secret) == 0 {
		return nil, errors.New("gateway secret required")
	}
	return &proofService{secret: m.Secret}, nil
}

func (s *proofService) Sign(externalOrderID, externalPaymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(externalOrderID + "|" + externalPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *proofService) Verify(externalOrderID, externalPaymentID, signature string) error {
	expected := s.Sign(externalOrderID, externalPaymentID)
	// hmac.Equal for the comparison so a mismatch cannot be timed
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
