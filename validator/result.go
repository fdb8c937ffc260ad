// Package validator implements spec.md §4.2: verification of VC-JWS and
// VP-JWS payloads against cryptographic, temporal, and revocation
// predicates, surfaced as typed result variants rather than errors.
package validator

import "github.com/acrusage/kmm-vc-library/vcmodel"

// CredentialStatus is the outcome of checkRevocationStatus.
type CredentialStatus int

const (
	StatusValid CredentialStatus = iota
	StatusRevoked
	StatusUnknown
)

func (s CredentialStatus) String() string {
	switch s {
	case StatusValid:
		return "Valid"
	case StatusRevoked:
		return "Revoked"
	default:
		return "Unknown"
	}
}

// CredentialOutcome tags the shape of a VerifyCredentialResult.
type CredentialOutcome int

const (
	CredentialSuccess CredentialOutcome = iota
	CredentialInvalidStructure
	CredentialRevoked
	CredentialSubjectMismatch
	CredentialExpired
	CredentialNotYetValid
)

// VerifyCredentialResult is verifyVcJws's typed return value
// (spec.md §4.2). Exactly one of the fields matching Outcome is
// meaningful; VC is populated for Success and Revoked (the spec's
// "Revoked variant carrying the parsed VC").
type VerifyCredentialResult struct {
	Outcome CredentialOutcome
	VC      *vcmodel.VerifiableCredential
	Claims  *vcmodel.VerifiableCredentialJws
	Err     error
}

func (r VerifyCredentialResult) IsSuccess() bool { return r.Outcome == CredentialSuccess }

// PresentationOutcome tags the shape of a VerifyPresentationResult.
type PresentationOutcome int

const (
	PresentationSuccess PresentationOutcome = iota
	PresentationInvalidStructure
)

// VerifyPresentationResult is verifyVpJws's typed return value
// (spec.md §4.2). On Success, VerifiableCredentials holds the VC-JWS
// entries that verified and RevokedVerifiableCredentials holds those
// that verified structurally but were revoked — a VP can be Success
// even when it partially contains revoked credentials.
type VerifyPresentationResult struct {
	Outcome                       PresentationOutcome
	VP                            *vcmodel.VerifiablePresentation
	Claims                        *vcmodel.VerifiablePresentationJws
	VerifiableCredentials         []VerifyCredentialResult
	RevokedVerifiableCredentials  []VerifyCredentialResult
	Err                           error
}

func (r VerifyPresentationResult) IsSuccess() bool { return r.Outcome == PresentationSuccess }
