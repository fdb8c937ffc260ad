package signing

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// JwkThumbprint computes the RFC 7638 SHA-256 thumbprint of an EC JWK and
// returns it as a "urn:ietf:params:oauth:jwk-thumbprint:sha-256:..." kid,
// the subject-syntax-type spec.md's SIOP layer requires wallets to
// support (spec.md §4.7).
func JwkThumbprint(jwk JsonWebKey) (string, error) {
	if jwk.Kty == "" || jwk.Crv == "" || jwk.X == "" || jwk.Y == "" {
		return "", fmt.Errorf("incomplete JWK: kty/crv/x/y are all required")
	}
	// RFC 7638 §3.2: members ordered lexicographically, no whitespace.
	canonical := fmt.Sprintf(`{"crv":%q,"kty":%q,"x":%q,"y":%q}`, jwk.Crv, jwk.Kty, jwk.X, jwk.Y)
	digest := sha256.Sum256([]byte(canonical))
	return "urn:ietf:params:oauth:jwk-thumbprint:sha-256:" + base64.RawURLEncoding.EncodeToString(digest[:]), nil
}
