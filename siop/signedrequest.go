package siop

import (
	"encoding/json"
	"fmt"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/signing"
)

// signRequestObject serializes and signs ro, embedding the relying
// party's own jwk so a wallet can verify it without a prior key
// exchange, mirroring the id_token's self-issued trust model.
func signRequestObject(ro *RequestObject, crypto signing.CryptoService) (string, error) {
	payload, err := json.Marshal(ro)
	if err != nil {
		return "", fmt.Errorf("marshal request object: %w", err)
	}
	return jws.Sign(payload, crypto, jws.SignOptions{IncludeJwk: true})
}

func decodeSignedRequestObject(requestJws string) (*RequestObject, error) {
	parsed, err := jws.Parse(requestJws)
	if err != nil {
		return nil, fmt.Errorf("parse request object: %w", err)
	}
	if err := parsed.Verify(signing.ES256Verifier{}, nil, nil); err != nil {
		return nil, fmt.Errorf("verify request object: %w", err)
	}
	var ro RequestObject
	if err := json.Unmarshal(parsed.Payload, &ro); err != nil {
		return nil, fmt.Errorf("unmarshal request object: %w", err)
	}
	return &ro, nil
}
