package security

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Aditya-jedi/Novyn/configs"
)

// GatewayMaterial holds the payment gateway credentials: the public key id
// used for basic auth and the shared secret used both for auth and for
// proof signatures.
type GatewayMaterial struct {
	KeyID  string
	Secret []byte
}

func NewGatewayMaterial(c configs.Config) (*GatewayMaterial, error) {
	m, err := LoadGatewayMaterial(c)
	return &m, err
}

func LoadGatewayMaterial(c configs.Config) (GatewayMaterial, error) {
	if c.Gateway.KeyID == "" {
		return GatewayMaterial{}, errors.New("gateway.key_id required")
	}

	// secret_b64url wins over the plain form when both are set
	var secret []byte
	switch {
	case c.Gateway.SecretB64 != "":
		b, err := base64.RawURLEncoding.DecodeString(c.Gateway.SecretB64)
		if err != nil {
			return GatewayMaterial{}, fmt.Errorf("decode gateway.secret_b64url: %w", err)
		}
		secret = b
	case c.Gateway.Secret != "":
		secret = []byte(c.Gateway.Secret)
	default:
		return GatewayMaterial{}, errors.New("gateway.secret or gateway.secret_b64url required")
	}

	return GatewayMaterial{KeyID: c.Gateway.KeyID, Secret: secret}, nil
}
