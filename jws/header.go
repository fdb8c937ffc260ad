package jws

import (
	golangjwt "github.com/golang-jwt/jwt/v5"

	"github.com/acrusage/kmm-vc-library/signing"
)

// Header is a compact JWS header (spec.md §4.1/§6).
type Header struct {
	Alg string              `json:"alg"`
	Typ string              `json:"typ,omitempty"`
	Kid string              `json:"kid,omitempty"`
	Jwk *signing.JsonWebKey `json:"jwk,omitempty"`
	X5c []string            `json:"x5c,omitempty"`
}

// allowedAlgorithms is the whitelist spec.md §4.1 requires ("one of a
// whitelisted set, minimally ES256"). ES256K is added per SPEC_FULL.md
// §4.1 for secp256k1-backed agents.
var allowedAlgorithms = map[string]signing.Algorithm{
	string(signing.AlgorithmES256):  signing.AlgorithmES256,
	string(signing.AlgorithmES256K): signing.AlgorithmES256K,
}

func supportedAlgNames() []string {
	names := make([]string, 0, len(allowedAlgorithms))
	for name := range allowedAlgorithms {
		names = append(names, name)
	}
	return names
}

func init() {
	// Register both algorithms as real golang-jwt SigningMethods, the
	// same pattern the teacher's credential/common/jwt package uses for
	// ES256K (signing_method.go). Unlike golang-jwt's built-in ES256
	// method, these delegate Sign/Verify to signing.CryptoService /
	// signing.VerifierCryptoService so a single method also covers the
	// non-stdlib secp256k1 backends (btcec, decred, go-ethereum) rather
	// than requiring a literal *ecdsa.PrivateKey.
	golangjwt.RegisterSigningMethod(string(signing.AlgorithmES256), func() golangjwt.SigningMethod {
		return cryptoServiceMethod{alg: signing.AlgorithmES256}
	})
	golangjwt.RegisterSigningMethod(string(signing.AlgorithmES256K), func() golangjwt.SigningMethod {
		return cryptoServiceMethod{alg: signing.AlgorithmES256K}
	})
}

// verifyKey bundles what cryptoServiceMethod.Verify needs to check a
// signature: the verifier implementation and the resolved public key
// (whose concrete type depends on the backend that produced it).
type verifyKey struct {
	verifier signing.VerifierCryptoService
	pub      interface{}
}

// cryptoServiceMethod adapts signing.CryptoService/VerifierCryptoService
// into golang-jwt's SigningMethod interface, so Sign/Parse/Verify in
// jws.go run through golang-jwt's Token/Parser machinery instead of a
// hand-rolled encoder.
type cryptoServiceMethod struct {
	alg signing.Algorithm
}

func (m cryptoServiceMethod) Alg() string { return string(m.alg) }

func (m cryptoServiceMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	crypto, ok := key.(signing.CryptoService)
	if !ok {
		return nil, golangjwt.ErrInvalidKeyType
	}
	return crypto.Sign([]byte(signingString))
}

func (m cryptoServiceMethod) Verify(signingString string, sig []byte, key interface{}) error {
	vk, ok := key.(verifyKey)
	if !ok {
		return golangjwt.ErrInvalidKeyType
	}
	if !vk.verifier.Verify([]byte(signingString), sig, m.alg, vk.pub) {
		return golangjwt.ErrSignatureInvalid
	}
	return nil
}
