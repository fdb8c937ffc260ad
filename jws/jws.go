package jws

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	golangjwt "github.com/golang-jwt/jwt/v5"

	"github.com/acrusage/kmm-vc-library/signing"
)

// JwsSigned is a parsed compact JWS: header, raw payload bytes (returned
// as-is per spec.md §4.1 — "not re-parsed at this layer"), and the
// signature bytes, plus the exact header.payload bytes that were signed.
type JwsSigned struct {
	Header       Header
	Payload      []byte
	Signature    []byte
	signingInput []byte
}

// KeyResolver looks up a verification key for a kid, e.g. resolving a
// did:key or JWK-thumbprint URN to its embedded public key, or looking
// one up in a caller-maintained directory.
type KeyResolver func(kid string) (interface{}, error)

// Parse splits a compact JWS into its three segments via golang-jwt's
// Parser, decoding the header and claims, and returning
// ErrInvalidStructure for anything short of a well-formed header with a
// whitelisted alg. Payload bytes are handed back raw; the caller
// (Validator) is responsible for interpreting them as JWT claims.
// Signature verification happens separately, in Verify.
func Parse(s string) (*JwsSigned, error) {
	if strings.Count(s, ".") != 2 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidStructure, strings.Count(s, ".")+1)
	}
	parts := strings.Split(s, ".")

	parser := golangjwt.NewParser(golangjwt.WithValidMethods(supportedAlgNames()))
	var claims golangjwt.MapClaims
	token, _, err := parser.ParseUnverified(s, &claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	header, err := decodeHeader(token.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrInvalidStructure, err)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decode signature: %v", ErrInvalidStructure, err)
	}

	return &JwsSigned{
		Header:       *header,
		Payload:      payload,
		Signature:    signature,
		signingInput: []byte(parts[0] + "." + parts[1]),
	}, nil
}

func decodeHeader(raw map[string]interface{}) (*Header, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(b, &header); err != nil {
		return nil, fmt.Errorf("decode header json: %w", err)
	}
	if _, ok := allowedAlgorithms[header.Alg]; !ok {
		return nil, fmt.Errorf("unsupported alg %q", header.Alg)
	}
	return &header, nil
}

// SignOptions controls how much key material Sign embeds in the header.
type SignOptions struct {
	IncludeKid bool
	IncludeJwk bool
}

// Sign serializes payload as JWT claims and signs it with crypto via
// golang-jwt's Token, returning the compact JWS string (spec.md §4.1).
func Sign(payload []byte, crypto signing.CryptoService, opts SignOptions) (string, error) {
	method := golangjwt.GetSigningMethod(string(crypto.JwsAlgorithm()))
	if method == nil {
		return "", fmt.Errorf("unsupported alg %q", crypto.JwsAlgorithm())
	}

	var claims golangjwt.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("payload must be a JSON object: %w", err)
	}

	token := golangjwt.NewWithClaims(method, claims)
	token.Header["typ"] = "JWT"
	if opts.IncludeKid {
		token.Header["kid"] = crypto.Identifier()
	}
	if opts.IncludeJwk {
		token.Header["jwk"] = crypto.ToJsonWebKey()
	}

	signed, err := token.SignedString(crypto)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return signed, nil
}

// Verify resolves the verification key (caller-supplied → header.jwk →
// header.x5c[0] → header.kid via resolver, per spec.md §4.1's priority
// order) and checks the signature through golang-jwt's SigningMethod
// registered for j.Header.Alg. expectedKey and resolver may both be
// nil; at least one key source must succeed or ErrInvalidSignature is
// returned.
func (j *JwsSigned) Verify(verifier signing.VerifierCryptoService, expectedKey interface{}, resolver KeyResolver) error {
	method := golangjwt.GetSigningMethod(j.Header.Alg)
	if method == nil {
		return fmt.Errorf("%w: unsupported alg %q", ErrInvalidStructure, j.Header.Alg)
	}

	key, err := j.resolveKey(expectedKey, resolver)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if err := method.Verify(string(j.signingInput), j.Signature, verifyKey{verifier: verifier, pub: key}); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

func (j *JwsSigned) resolveKey(expectedKey interface{}, resolver KeyResolver) (interface{}, error) {
	if expectedKey != nil {
		return expectedKey, nil
	}
	if j.Header.Jwk != nil {
		return jwkToPublicKey(*j.Header.Jwk)
	}
	if len(j.Header.X5c) > 0 {
		return x5cToPublicKey(j.Header.X5c[0])
	}
	if j.Header.Kid != "" && resolver != nil {
		return resolver(j.Header.Kid)
	}
	return nil, fmt.Errorf("no verification key available (no expected key, jwk, x5c, or kid resolver)")
}

func jwkToPublicKey(jwk signing.JsonWebKey) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch jwk.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "secp256k1":
		// btcec.S256() implements elliptic.Curve for secp256k1; avoid
		// importing it here to keep jws decoupled from a specific curve
		// backend beyond signing.VerifierCryptoService's contract.
		return nil, fmt.Errorf("secp256k1 jwk verification key must be supplied via signing.Secp256k1CryptoService, not decoded here")
	default:
		return nil, fmt.Errorf("unsupported jwk curve %q", jwk.Crv)
	}

	x, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decode jwk.x: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decode jwk.y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}

func x5cToPublicKey(certB64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return nil, fmt.Errorf("decode x5c certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse x5c certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("x5c certificate public key is not ECDSA")
	}
	return pub, nil
}
