package holder

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/semaphore"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/revocation"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/vcmodel"
	"github.com/acrusage/kmm-vc-library/validator"
)

// CredentialInput is one item passed to StoreCredentials.
type CredentialInput struct {
	VcJws       string
	Attachments map[string][]byte
}

// StoreCredentialsResult partitions inputs per spec.md §4.5.
type StoreCredentialsResult struct {
	Accepted    []string
	Rejected    []string
	NotVerified []string
	Attachments map[string]map[string][]byte
}

// CredentialEntry is one row of getCredentials's result.
type CredentialEntry struct {
	VcSerialized string
	VC           vcmodel.VerifiableCredential
	Status       validator.CredentialStatus
}

// PresentationResult is createPresentation's return value; nil means
// "no matching credentials" per spec.md §4.5.
type PresentationResult struct {
	VpJws string
}

// Agent stores and presents credentials on behalf of a subject,
// delegating all cryptographic and revocation logic to a Validator.
// Mutating operations are serialized through sem (spec.md §5).
type Agent struct {
	crypto    signing.CryptoService
	validator *validator.Validator
	store     *CredentialStore
	sem       *semaphore.Weighted
}

// NewAgent builds a holder bound to crypto's signing key, verifying
// incoming credentials with v.
func NewAgent(crypto signing.CryptoService, v *validator.Validator) *Agent {
	return &Agent{
		crypto:    crypto,
		validator: v,
		store:     NewCredentialStore(),
		sem:       semaphore.NewWeighted(1),
	}
}

// Identifier returns this holder's kid.
func (a *Agent) Identifier() string { return a.crypto.Identifier() }

// SigningService exposes the holder's crypto service, used by the SIOP
// wallet layer to sign an id_token with the same key that signs VPs.
func (a *Agent) SigningService() signing.CryptoService { return a.crypto }

// StoreCredentials verifies each input against the Validator before
// accepting it (spec.md §4.5). A credential whose subject does not
// match this holder's identifier is rejected as NotVerified rather
// than Accepted, regardless of its own validity.
func (a *Agent) StoreCredentials(ctx context.Context, inputs []CredentialInput) (*StoreCredentialsResult, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire holder lock: %w", err)
	}
	defer a.sem.Release(1)

	result := &StoreCredentialsResult{Attachments: make(map[string]map[string][]byte)}
	for _, input := range inputs {
		outcome := a.validator.VerifyVcJws(input.VcJws, a.crypto.Identifier())
		switch outcome.Outcome {
		case validator.CredentialSuccess:
			a.store.Put(outcome.VC.ID, StoreEntry{VcJws: input.VcJws, Attachments: input.Attachments})
			result.Accepted = append(result.Accepted, input.VcJws)
			if len(input.Attachments) > 0 {
				result.Attachments[outcome.VC.ID] = input.Attachments
			}
		case validator.CredentialRevoked:
			result.Rejected = append(result.Rejected, input.VcJws)
		default:
			result.NotVerified = append(result.NotVerified, input.VcJws)
		}
	}
	return result, nil
}

// StoreValidatedCredentials bypasses verification; the caller asserts
// each entry is already known-valid (spec.md §4.5).
func (a *Agent) StoreValidatedCredentials(ctx context.Context, inputs []CredentialInput) (bool, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire holder lock: %w", err)
	}
	defer a.sem.Release(1)

	for _, input := range inputs {
		parsed, err := jws.Parse(input.VcJws)
		if err != nil {
			return false, nil
		}
		var claims vcmodel.VerifiableCredentialJws
		if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
			return false, nil
		}
		a.store.Put(claims.VC.ID, StoreEntry{VcJws: input.VcJws, Attachments: input.Attachments})
	}
	return true, nil
}

// SetRevocationList decodes a signed RevocationList VC-JWS and installs
// it on this holder's Validator. Subsequent StoreCredentials/
// getCredentials calls observe it immediately (spec.md §4.5).
func (a *Agent) SetRevocationList(listVcJws string) bool {
	parsed, err := jws.Parse(listVcJws)
	if err != nil {
		return false
	}
	var claims vcmodel.VerifiableCredentialJws
	if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
		return false
	}
	subject, ok := claims.VC.CredentialSubject.(*vcmodel.StatusListSubject)
	if !ok {
		return false
	}
	list, err := revocation.DecodeStandalone(subject.EncodedList)
	if err != nil {
		return false
	}
	a.validator.SetRevocationList(list)
	return true
}

// GetCredentials returns every stored credential whose type overlaps
// attributeTypes (any match), or all of them if attributeTypes is nil.
// Stored credentials that no longer verify to a VC (bad signature,
// expired, not yet valid, subject mismatch) are left out. Status is derived from the Validator at call time, never cached
// (spec.md §4.5).
func (a *Agent) GetCredentials(attributeTypes []string) ([]CredentialEntry, error) {
	var out []CredentialEntry
	for _, entry := range a.store.All() {
		result := a.validator.VerifyVcJws(entry.VcJws, a.crypto.Identifier())
		if result.VC == nil {
			continue
		}
		if attributeTypes != nil && !typesOverlap(result.VC.Type, attributeTypes) {
			continue
		}
		status := a.validator.CheckRevocationStatus(result.VC)
		out = append(out, CredentialEntry{VcSerialized: entry.VcJws, VC: *result.VC, Status: status})
	}
	return out, nil
}

func typesOverlap(vcTypes, filter []string) bool {
	for _, t := range filter {
		if slices.Contains(vcTypes, t) {
			return true
		}
	}
	return false
}

// CreatePresentation selects stored credentials whose status is Valid
// or Unknown (never Revoked) and whose type matches attributeTypes (nil
// = no filter), wraps their raw VC-JWS strings in a VP, and signs it.
// Returns nil if the selection is empty (spec.md §4.5).
func (a *Agent) CreatePresentation(challenge, audienceKeyID string, attributeTypes []string) (*PresentationResult, error) {
	entries, err := a.GetCredentials(attributeTypes)
	if err != nil {
		return nil, err
	}
	var selected []string
	for _, e := range entries {
		if e.Status != validator.StatusRevoked {
			selected = append(selected, e.VcSerialized)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}
	return a.signPresentation(selected, challenge, audienceKeyID)
}

// CreatePresentationFromCredentials is the overload that trusts the
// caller to supply only valid serialized VC-JWS strings, skipping the
// selection step (spec.md §4.5).
func (a *Agent) CreatePresentationFromCredentials(validCredentials []string, challenge, audienceKeyID string) (*PresentationResult, error) {
	if len(validCredentials) == 0 {
		return nil, nil
	}
	return a.signPresentation(validCredentials, challenge, audienceKeyID)
}

func (a *Agent) signPresentation(vcJwsList []string, challenge, audienceKeyID string) (*PresentationResult, error) {
	vp := vcmodel.NewVerifiablePresentation("urn:uuid:"+newUUID(), a.crypto.Identifier(), vcJwsList)
	now := clockNow()
	claims := vcmodel.VerifiablePresentationJws{
		Issuer:         a.crypto.Identifier(),
		Subject:        a.crypto.Identifier(),
		Audience:       audienceKeyID,
		JwtID:          "urn:uuid:" + newUUID(),
		IssuedAt:       now.Unix(),
		NotBefore:      now.Unix(),
		ExpirationTime: now.Add(defaultVpValidity).Unix(),
		Nonce:          challenge,
		VP:             vp,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal vp claims: %w", err)
	}
	vpJws, err := jws.Sign(payload, a.crypto, jws.SignOptions{IncludeKid: true})
	if err != nil {
		return nil, fmt.Errorf("sign vp: %w", err)
	}
	return &PresentationResult{VpJws: vpJws}, nil
}
