package verifier_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/validator"
	"github.com/acrusage/kmm-vc-library/vcmodel"
	"github.com/acrusage/kmm-vc-library/verifier"
)

func newParties(t *testing.T) (issuer, holderKey, verifierKey *signing.ES256CryptoService, resolver jws.KeyResolver) {
	t.Helper()
	var err error
	issuer, err = signing.NewES256CryptoService()
	require.NoError(t, err)
	holderKey, err = signing.NewES256CryptoService()
	require.NoError(t, err)
	verifierKey, err = signing.NewES256CryptoService()
	require.NoError(t, err)
	keys := map[string]interface{}{
		issuer.Identifier():      issuer.PublicKey(),
		holderKey.Identifier():   holderKey.PublicKey(),
		verifierKey.Identifier(): verifierKey.PublicKey(),
	}
	resolver = func(kid string) (interface{}, error) {
		if pub, ok := keys[kid]; ok {
			return pub, nil
		}
		return nil, assert.AnError
	}
	return
}

func signVcJws(t *testing.T, issuer, holderKey *signing.ES256CryptoService) string {
	t.Helper()
	now := time.Now()
	subject := vcmodel.AtomicAttribute{ID: "attr-1", Name: "givenName", Value: "Alice"}
	vc, err := vcmodel.NewVerifiableCredential("urn:uuid:vc-1", []string{"AtomicAttribute2023"}, issuer.Identifier(), now.Add(-time.Hour), now.Add(time.Hour), subject)
	require.NoError(t, err)
	claims := vcmodel.NewVerifiableCredentialJws(*vc, holderKey.Identifier())
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	s, err := jws.Sign(payload, issuer, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return s
}

func signVpJws(t *testing.T, holderKey *signing.ES256CryptoService, audience, challenge string, vcJwsList []string) string {
	t.Helper()
	now := time.Now()
	vp := vcmodel.NewVerifiablePresentation("urn:uuid:vp-1", holderKey.Identifier(), vcJwsList)
	claims := vcmodel.VerifiablePresentationJws{
		Issuer:         holderKey.Identifier(),
		Subject:        holderKey.Identifier(),
		Audience:       audience,
		JwtID:          "urn:uuid:vp-jws-1",
		NotBefore:      now.Add(-time.Minute).Unix(),
		ExpirationTime: now.Add(time.Hour).Unix(),
		Nonce:          challenge,
		VP:             vp,
	}
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	s, err := jws.Sign(payload, holderKey, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return s
}

func TestVerifyPresentationHappyPath(t *testing.T) {
	issuer, holderKey, verifierKey, resolver := newParties(t)
	vcJws := signVcJws(t, issuer, holderKey)
	v := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	agent := verifier.NewAgent(verifierKey, v)

	vpJws := signVpJws(t, holderKey, verifierKey.Identifier(), "c1", []string{vcJws})
	result := agent.VerifyPresentation(vpJws, "c1")

	require.True(t, result.IsSuccess())
	assert.Len(t, result.VerifiableCredentials, 1)
	assert.Empty(t, result.RevokedVerifiableCredentials)
}

func TestVerifyPresentationWrongAudience(t *testing.T) {
	issuer, holderKey, verifierKey, resolver := newParties(t)
	vcJws := signVcJws(t, issuer, holderKey)
	v := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	agent := verifier.NewAgent(verifierKey, v)

	vpJws := signVpJws(t, holderKey, issuer.Identifier(), "c1", []string{vcJws})
	result := agent.VerifyPresentation(vpJws, "c1")

	assert.Equal(t, validator.PresentationInvalidStructure, result.Outcome)
}

func TestVerifyVcJwsWithoutSubjectBinding(t *testing.T) {
	issuer, holderKey, verifierKey, resolver := newParties(t)
	vcJws := signVcJws(t, issuer, holderKey)
	v := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	agent := verifier.NewAgent(verifierKey, v)

	result := agent.VerifyVcJws(vcJws, false)
	assert.True(t, result.IsSuccess())
}

func TestVerifyPresentationContainsAttributes(t *testing.T) {
	issuer, holderKey, verifierKey, resolver := newParties(t)
	vcJws := signVcJws(t, issuer, holderKey)
	v := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	agent := verifier.NewAgent(verifierKey, v)

	vpJws := signVpJws(t, holderKey, verifierKey.Identifier(), "c1", []string{vcJws})
	result := agent.VerifyPresentation(vpJws, "c1")
	require.True(t, result.IsSuccess())

	assert.True(t, verifier.VerifyPresentationContainsAttributes(result, []string{"givenName"}))
	assert.False(t, verifier.VerifyPresentationContainsAttributes(result, []string{"familyName"}))
}
