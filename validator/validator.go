package validator

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/revocation"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

// Clock abstracts "now" so temporal checks are deterministic in tests,
// grounded on the teacher's WithClock functional-option pattern.
type Clock func() time.Time

// Validator verifies VC-JWS/VP-JWS payloads against a resolvable set
// of issuer/holder keys and an optionally-set revocation list.
type Validator struct {
	verifier signing.VerifierCryptoService
	resolver jws.KeyResolver
	clock    Clock

	mu   sync.RWMutex
	list *revocation.RevocationList
}

// Option configures a Validator at construction time.
type Option func(*Validator)

// WithClock overrides the default time.Now-based clock.
func WithClock(c Clock) Option {
	return func(v *Validator) { v.clock = c }
}

// NewValidator builds a Validator. verifier checks signatures against
// resolved keys; resolver maps a JWS `kid` to the public key material
// needed to verify it (e.g. a directory of known issuer/holder keys).
func NewValidator(verifier signing.VerifierCryptoService, resolver jws.KeyResolver, opts ...Option) *Validator {
	v := &Validator{
		verifier: verifier,
		resolver: resolver,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetRevocationList installs the list used by checkRevocationStatus
// and by verifyVcJws's revocation check. Passing an encoded JWS payload
// through the caller (issuer/holder/verifier agents) is expected to
// decode it into a *revocation.RevocationList before calling this.
func (v *Validator) SetRevocationList(list *revocation.RevocationList) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = list
}

// CheckRevocationStatus returns Unknown when no list has been set or
// vc carries no CredentialStatus; otherwise looks up the bit at
// StatusListIndex (spec.md §4.2).
func (v *Validator) CheckRevocationStatus(vc *vcmodel.VerifiableCredential) CredentialStatus {
	v.mu.RLock()
	list := v.list
	v.mu.RUnlock()

	if list == nil || vc.CredentialStatus == nil {
		return StatusUnknown
	}
	if list.IsRevoked(vc.CredentialStatus.StatusListIndex) {
		return StatusRevoked
	}
	return StatusValid
}

// VerifyVcJws implements spec.md §4.2's VC-JWS verification algorithm.
// expectedSubjectKeyId is compared against the claims' `sub`; pass ""
// to skip subject binding (used by verifiers checking a VC they did
// not issue to themselves).
func (v *Validator) VerifyVcJws(s string, expectedSubjectKeyId string) VerifyCredentialResult {
	parsed, err := jws.Parse(s)
	if err != nil {
		return VerifyCredentialResult{Outcome: CredentialInvalidStructure, Err: err}
	}
	if err := parsed.Verify(v.verifier, nil, v.resolver); err != nil {
		return VerifyCredentialResult{Outcome: CredentialInvalidStructure, Err: err}
	}

	var claims vcmodel.VerifiableCredentialJws
	if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
		return VerifyCredentialResult{Outcome: CredentialInvalidStructure, Err: fmt.Errorf("unmarshal vc claims: %w", err)}
	}

	now := v.clock()
	if now.Before(claims.NotBeforeTime()) {
		return VerifyCredentialResult{Outcome: CredentialNotYetValid, Claims: &claims}
	}
	if now.After(claims.ExpiryTime()) {
		return VerifyCredentialResult{Outcome: CredentialExpired, Claims: &claims}
	}
	if expectedSubjectKeyId != "" && claims.Subject != expectedSubjectKeyId {
		return VerifyCredentialResult{Outcome: CredentialSubjectMismatch, Claims: &claims}
	}

	vc := claims.VC
	if v.CheckRevocationStatus(&vc) == StatusRevoked {
		return VerifyCredentialResult{Outcome: CredentialRevoked, VC: &vc, Claims: &claims}
	}

	return VerifyCredentialResult{Outcome: CredentialSuccess, VC: &vc, Claims: &claims}
}

// VerifyVpJws implements spec.md §4.2's VP-JWS verification algorithm.
// Each contained VC-JWS is checked with expectedSubjectKeyId = vp.iss;
// the VP succeeds even if some contained VCs are revoked, partitioning
// results into VerifiableCredentials / RevokedVerifiableCredentials.
func (v *Validator) VerifyVpJws(s string, expectedChallenge string, expectedAudienceKeyId string) VerifyPresentationResult {
	parsed, err := jws.Parse(s)
	if err != nil {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Err: err}
	}
	if err := parsed.Verify(v.verifier, nil, v.resolver); err != nil {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Err: err}
	}

	var claims vcmodel.VerifiablePresentationJws
	if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Err: fmt.Errorf("unmarshal vp claims: %w", err)}
	}

	if claims.Audience != expectedAudienceKeyId {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Claims: &claims,
			Err: fmt.Errorf("audience mismatch: got %q want %q", claims.Audience, expectedAudienceKeyId)}
	}
	if claims.Nonce != expectedChallenge {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Claims: &claims,
			Err: fmt.Errorf("nonce mismatch: got %q want %q", claims.Nonce, expectedChallenge)}
	}

	now := v.clock()
	if now.Before(claims.NotBeforeTime()) {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Claims: &claims, Err: fmt.Errorf("vp not yet valid")}
	}
	if now.After(claims.ExpiryTime()) {
		return VerifyPresentationResult{Outcome: PresentationInvalidStructure, Claims: &claims, Err: fmt.Errorf("vp expired")}
	}

	vp := claims.VP
	var successes, revoked []VerifyCredentialResult
	for _, vcJws := range vp.VerifiableCredential {
		result := v.VerifyVcJws(vcJws, claims.Issuer)
		switch result.Outcome {
		case CredentialSuccess:
			successes = append(successes, result)
		case CredentialRevoked:
			revoked = append(revoked, result)
		default:
			// A malformed/expired contained VC does not invalidate the
			// VP as a whole; spec.md §4.2 only names the revoked
			// partition explicitly, so anything else is simply
			// excluded from both slices.
		}
	}

	return VerifyPresentationResult{
		Outcome:                      PresentationSuccess,
		VP:                           &vp,
		Claims:                       &claims,
		VerifiableCredentials:        successes,
		RevokedVerifiableCredentials: revoked,
	}
}
