package signing

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	decredec "github.com/decred/dcrd/dcrec/secp256k1/v4"
	dsecp "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const secp256k1ComponentSize = 32

// Secp256k1CryptoService is an alternate CryptoService backed by a
// secp256k1 key, the curve the teacher's issuer DID generator uses (see
// DESIGN.md). Like ES256CryptoService, its kid is an RFC 7638 JWK
// thumbprint.
type Secp256k1CryptoService struct {
	privateKey *ecdsa.PrivateKey
	kid        string
}

// NewSecp256k1CryptoService generates a fresh secp256k1 key pair.
func NewSecp256k1CryptoService() (*Secp256k1CryptoService, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	jwk := jwkFromSecp256k1(&priv.PublicKey)
	kid, err := JwkThumbprint(jwk)
	if err != nil {
		return nil, fmt.Errorf("derive kid: %w", err)
	}
	return &Secp256k1CryptoService{privateKey: priv, kid: kid}, nil
}

func (s *Secp256k1CryptoService) Identifier() string      { return s.kid }
func (s *Secp256k1CryptoService) JwsAlgorithm() Algorithm { return AlgorithmES256K }
func (s *Secp256k1CryptoService) KeyType() KeyType        { return KeyTypeECDSASecp256k1 }
func (s *Secp256k1CryptoService) ToJsonWebKey() JsonWebKey {
	return jwkFromSecp256k1(&s.privateKey.PublicKey)
}

// Sign signs data, applying canonical (low-S) normalization via the
// decred secp256k1 package before returning the fixed-width r||s pair —
// go-ethereum's crypto.Sign alone does not enforce low-S.
func (s *Secp256k1CryptoService) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)

	decredPriv := decredec.PrivKeyFromBytes(s.privateKey.D.Bytes())
	sig := dsecp.SignCompact(decredPriv, digest[:], false)
	// SignCompact returns [recovery(1) || r(32) || s(32)]; drop recovery.
	if len(sig) != 1+2*secp256k1ComponentSize {
		return nil, fmt.Errorf("unexpected compact signature length %d", len(sig))
	}
	return sig[1:], nil
}

func verifySecp256k1(signingInput, signature []byte, key interface{}) bool {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || len(signature) != 2*secp256k1ComponentSize {
		return false
	}
	digest := sha256.Sum256(signingInput)
	r := new(big.Int).SetBytes(signature[:secp256k1ComponentSize])
	s := new(big.Int).SetBytes(signature[secp256k1ComponentSize:])

	// Validate the point lies on secp256k1 via btcec before delegating to
	// stdlib ecdsa.Verify against the same curve parameters.
	if _, err := btcec.ParsePubKey(ethcrypto.CompressPubkey(pub)); err != nil {
		return false
	}
	return ecdsa.Verify(pub, digest[:], r, s)
}

func jwkFromSecp256k1(pub *ecdsa.PublicKey) JsonWebKey {
	x := make([]byte, secp256k1ComponentSize)
	y := make([]byte, secp256k1ComponentSize)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	return JsonWebKey{
		Kty: "EC",
		Crv: "secp256k1",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}
