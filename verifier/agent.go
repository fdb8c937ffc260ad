// Package verifier implements spec.md §4.6: the VerifierAgent that
// checks presentations and individual credentials via a Validator.
package verifier

import (
	"golang.org/x/exp/slices"

	"github.com/acrusage/kmm-vc-library/revocation"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/validator"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

// Agent verifies VPs and VCs on behalf of a relying party, delegating
// all cryptographic and revocation logic to a Validator.
type Agent struct {
	crypto    signing.CryptoService
	validator *validator.Validator
}

// NewAgent builds a verifier identified by crypto's kid.
func NewAgent(crypto signing.CryptoService, v *validator.Validator) *Agent {
	return &Agent{crypto: crypto, validator: v}
}

// Identifier returns this verifier's kid, used as the expected VP
// audience.
func (a *Agent) Identifier() string { return a.crypto.Identifier() }

// VerifyPresentation delegates to the Validator with
// expectedAudienceKeyId = this verifier's identifier (spec.md §4.6).
func (a *Agent) VerifyPresentation(vpJws, challenge string) validator.VerifyPresentationResult {
	return a.validator.VerifyVpJws(vpJws, challenge, a.crypto.Identifier())
}

// VerifyVcJws checks vcJws standalone. When expectSubjectBinding is
// true, the credential's `sub` must equal this verifier's identifier;
// otherwise subject binding is skipped entirely, per spec.md §4.6's
// "null means do not check subject binding".
func (a *Agent) VerifyVcJws(vcJws string, expectSubjectBinding bool) validator.VerifyCredentialResult {
	expected := ""
	if expectSubjectBinding {
		expected = a.crypto.Identifier()
	}
	return a.validator.VerifyVcJws(vcJws, expected)
}

// SetRevocationList installs list on the underlying Validator.
func (a *Agent) SetRevocationList(list *revocation.RevocationList) {
	a.validator.SetRevocationList(list)
}

// VerifyPresentationContainsAttributes compares the ordered list of
// atomic attribute names across a verified presentation's credentials
// against names (spec.md §4.6).
func VerifyPresentationContainsAttributes(result validator.VerifyPresentationResult, names []string) bool {
	var got []string
	for _, c := range result.VerifiableCredentials {
		if c.VC == nil {
			continue
		}
		if attr, ok := c.VC.CredentialSubject.(*vcmodel.AtomicAttribute); ok {
			got = append(got, attr.Name)
		}
	}
	return slices.Equal(got, names)
}
