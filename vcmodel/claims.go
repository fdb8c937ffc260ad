package vcmodel

import "time"

// VerifiableCredentialJws is the JWT claim set wrapping a VC
// (spec.md §3/§6): iss = issuer key id, jti = VC.id, sub = subject key
// id, nbf = issuanceDate, exp = expirationDate.
type VerifiableCredentialJws struct {
	Issuer         string                `json:"iss"`
	JwtID          string                `json:"jti"`
	Subject        string                `json:"sub"`
	NotBefore      int64                 `json:"nbf"`
	ExpirationTime int64                 `json:"exp"`
	VC             VerifiableCredential  `json:"vc"`
}

// NewVerifiableCredentialJws builds the JWT claim set for vc, deriving
// iss/jti/sub/nbf/exp from the VC itself per spec.md §3.
func NewVerifiableCredentialJws(vc VerifiableCredential, holderKeyID string) VerifiableCredentialJws {
	return VerifiableCredentialJws{
		Issuer:         vc.Issuer,
		JwtID:          vc.ID,
		Subject:        holderKeyID,
		NotBefore:      vc.IssuanceDate.Unix(),
		ExpirationTime: vc.ExpirationDate.Unix(),
		VC:             vc,
	}
}

func (c VerifiableCredentialJws) NotBeforeTime() time.Time { return time.Unix(c.NotBefore, 0).UTC() }
func (c VerifiableCredentialJws) ExpiryTime() time.Time    { return time.Unix(c.ExpirationTime, 0).UTC() }

// VerifiablePresentationJws is the JWT claim set wrapping a VP
// (spec.md §3): iss = sub = holder key id, aud = verifier key id,
// jti = VP.id, nonce = challenge.
type VerifiablePresentationJws struct {
	Issuer         string                  `json:"iss"`
	Subject        string                  `json:"sub"`
	Audience       string                  `json:"aud"`
	JwtID          string                  `json:"jti"`
	IssuedAt       int64                   `json:"iat"`
	NotBefore      int64                   `json:"nbf"`
	ExpirationTime int64                   `json:"exp"`
	Nonce          string                  `json:"nonce"`
	VP             VerifiablePresentation  `json:"vp"`
}

func (p VerifiablePresentationJws) NotBeforeTime() time.Time { return time.Unix(p.NotBefore, 0).UTC() }
func (p VerifiablePresentationJws) ExpiryTime() time.Time    { return time.Unix(p.ExpirationTime, 0).UTC() }
