// Package signing defines the cryptographic contracts the rest of the
// library depends on (CryptoService / VerifierCryptoService) and ships a
// default ECDSA-based implementation of each.
package signing

// KeyType identifies the cryptographic key material behind a CryptoService.
type KeyType string

// Algorithm identifies a JWS signature algorithm.
type Algorithm string

const (
	KeyTypeECDSAP256      KeyType = "ECDSAP256"
	KeyTypeECDSASecp256k1 KeyType = "ECDSASecp256k1"

	AlgorithmES256  Algorithm = "ES256"
	AlgorithmES256K Algorithm = "ES256K"
)

// JsonWebKey is the subset of RFC 7517 fields this library ever needs to
// serialize into a JWS header or a DID document.
type JsonWebKey struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// CryptoService is the signing-side contract an Issuer/Holder agent is
// constructed with. Implementations may dispatch to a platform keystore;
// callers must not assume Sign is non-blocking.
type CryptoService interface {
	// Identifier is this agent's kid / routing identifier, derived from
	// the public key (JWK thumbprint or did:key).
	Identifier() string

	// JwsAlgorithm is the alg this service signs with.
	JwsAlgorithm() Algorithm

	// KeyType reports which key material backs this service.
	KeyType() KeyType

	// Sign produces a raw r||s signature over data (not base64url-encoded).
	Sign(data []byte) ([]byte, error)

	// ToJsonWebKey exports the public key as a JWK.
	ToJsonWebKey() JsonWebKey
}

// VerifierCryptoService is the verification-side contract. It is
// deliberately key-agnostic: callers resolve the key (from a JWK, an
// x5c certificate, or a kid lookup) and pass it in.
type VerifierCryptoService interface {
	// Verify checks signature over signingInput under alg using key,
	// which must be a *ecdsa.PublicKey (any curve the alg supports).
	Verify(signingInput, signature []byte, alg Algorithm, key interface{}) bool
}
