package auth

import (
	"time"
)

// OwnerClaims are the claims carried by an owner access token. Tokens are
// v4.local, so the claims are encrypted and only readable with the key.
type OwnerClaims struct {
	OwnerID string `json:"owner_id"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
