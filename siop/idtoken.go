package siop

import (
	"encoding/json"
	"fmt"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/signing"
)

// buildAndSignIdToken constructs and signs the id_token spec.md §4.7
// step 2 describes: iss=sub=holder's kid, aud=redirect_uri,
// exp=iat+60s. The holder's own public key is embedded both as the
// sub_jwk claim and as the JWS header's jwk; the header jwk is what lets
// a verifier check the signature without a separate key directory.
func buildAndSignIdToken(crypto signing.CryptoService, audience, nonce string) (string, error) {
	jwk := crypto.ToJsonWebKey()
	jwkMap := map[string]interface{}{"kty": jwk.Kty, "crv": jwk.Crv, "x": jwk.X, "y": jwk.Y}

	now := clockNow().Unix()
	idToken := IdToken{
		Issuer:         crypto.Identifier(),
		Subject:        crypto.Identifier(),
		Audience:       audience,
		IssuedAt:       now,
		ExpirationTime: now + 60,
		Nonce:          nonce,
		SubjectJwk:     jwkMap,
	}
	payload, err := json.Marshal(idToken)
	if err != nil {
		return "", fmt.Errorf("marshal id_token: %w", err)
	}
	return jws.Sign(payload, crypto, jws.SignOptions{IncludeJwk: true})
}

// parseAndVerifyIdToken verifies an id_token JWS against the jwk embedded
// in its own JWS header (self-issued, per SIOPv2) and returns its claims.
// The sub_jwk claim is not compared with that header key.
func parseAndVerifyIdToken(idTokenJws string) (*IdToken, error) {
	parsed, err := jws.Parse(idTokenJws)
	if err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	if err := parsed.Verify(signing.ES256Verifier{}, nil, nil); err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	var claims IdToken
	if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal id_token claims: %w", err)
	}
	return &claims, nil
}
