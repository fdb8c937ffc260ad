package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

const p256ComponentSize = 32

// ES256CryptoService is the default CryptoService implementation, backed
// by a NIST P-256 key pair — the curve spec.md's minimal alg whitelist
// (ES256) requires.
type ES256CryptoService struct {
	privateKey *ecdsa.PrivateKey
	kid        string
}

// NewES256CryptoService generates a fresh P-256 key pair and derives its
// kid as an RFC 7638 JWK thumbprint.
func NewES256CryptoService() (*ES256CryptoService, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 key: %w", err)
	}
	return NewES256CryptoServiceFromKey(priv)
}

// NewES256CryptoServiceFromKey wraps an existing P-256 private key.
func NewES256CryptoServiceFromKey(priv *ecdsa.PrivateKey) (*ES256CryptoService, error) {
	if priv == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	jwk := jwkFromECDSA(&priv.PublicKey)
	kid, err := JwkThumbprint(jwk)
	if err != nil {
		return nil, fmt.Errorf("derive kid: %w", err)
	}
	return &ES256CryptoService{privateKey: priv, kid: kid}, nil
}

func (s *ES256CryptoService) Identifier() string      { return s.kid }
func (s *ES256CryptoService) JwsAlgorithm() Algorithm { return AlgorithmES256 }
func (s *ES256CryptoService) KeyType() KeyType        { return KeyTypeECDSAP256 }

func (s *ES256CryptoService) ToJsonWebKey() JsonWebKey {
	return jwkFromECDSA(&s.privateKey.PublicKey)
}

// PublicKey exposes the raw public key, e.g. for embedding in a caller's
// own DID document.
func (s *ES256CryptoService) PublicKey() *ecdsa.PublicKey {
	return &s.privateKey.PublicKey
}

// Sign returns a fixed-width r||s signature, 64 bytes for P-256.
func (s *ES256CryptoService) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, sVal, err := ecdsa.Sign(rand.Reader, s.privateKey, digest[:])
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}
	rBytes, sBytes := padComponent(r), padComponent(sVal)
	sig := append(rBytes, sBytes...)
	if len(sig) != 2*p256ComponentSize {
		return nil, fmt.Errorf("unexpected signature length %d", len(sig))
	}
	return sig, nil
}

func padComponent(v *big.Int) []byte {
	b := v.Bytes()
	out := make([]byte, p256ComponentSize)
	copy(out[p256ComponentSize-len(b):], b)
	return out
}

// ES256Verifier is the default VerifierCryptoService, checking ES256
// (P-256) and ES256K (secp256k1) signatures depending on alg.
type ES256Verifier struct{}

func (ES256Verifier) Verify(signingInput, signature []byte, alg Algorithm, key interface{}) bool {
	switch alg {
	case AlgorithmES256:
		pub, ok := key.(*ecdsa.PublicKey)
		if !ok || len(signature) != 2*p256ComponentSize {
			return false
		}
		digest := sha256.Sum256(signingInput)
		r := new(big.Int).SetBytes(signature[:p256ComponentSize])
		s := new(big.Int).SetBytes(signature[p256ComponentSize:])
		return ecdsa.Verify(pub, digest[:], r, s)
	case AlgorithmES256K:
		return verifySecp256k1(signingInput, signature, key)
	default:
		return false
	}
}

func jwkFromECDSA(pub *ecdsa.PublicKey) JsonWebKey {
	size := (pub.Curve.Params().BitSize + 7) / 8
	x := make([]byte, size)
	y := make([]byte, size)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	return JsonWebKey{
		Kty: "EC",
		Crv: pub.Curve.Params().Name,
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}
