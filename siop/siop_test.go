package siop_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrusage/kmm-vc-library/holder"
	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/siop"
	"github.com/acrusage/kmm-vc-library/validator"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

func signVc(t *testing.T, issuer, holderKey *signing.ES256CryptoService) string {
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

func TestSiopFragmentFlowHappyPath(t *testing.T) {
	issuerCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	holderCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	verifierCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)

	keys := map[string]interface{}{
		issuerCrypto.Identifier(): issuerCrypto.PublicKey(),
		holderCrypto.Identifier(): holderCrypto.PublicKey(),
	}
	resolver := func(kid string) (interface{}, error) {
		if pub, ok := keys[kid]; ok {
			return pub, nil
		}
		return nil, assert.AnError
	}

	holderValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	holderAgent := holder.NewAgent(holderCrypto, holderValidator)
	vcJws := signVc(t, issuerCrypto, holderCrypto)
	storeResult, err := holderAgent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)
	require.Len(t, storeResult.Accepted, 1)

	wallet := siop.NewOidcSiopWallet(holderAgent)

	verifierValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	rpVerifier := siop.NewOidcSiopVerifier(verifierCrypto, verifierValidator)

	relyingPartyURL := "https://verifier.example/callback"
	requestURL, err := rpVerifier.CreateAuthnRequestURL("openid://wallet", relyingPartyURL, siop.ResponseModeFragment, nil, false)
	require.NoError(t, err)

	authnResponse, err := wallet.CreateAuthnResponse(requestURL)
	require.NoError(t, err)
	require.Equal(t, siop.AuthnResponseRedirect, authnResponse.Kind)
	assert.Contains(t, authnResponse.URL, "#")

	result, err := rpVerifier.ValidateAuthnResponse(authnResponse.URL, relyingPartyURL)
	require.NoError(t, err)
	require.True(t, result.Presentation.IsSuccess())
	assert.Len(t, result.Presentation.VerifiableCredentials, 1)
	assert.Empty(t, result.Presentation.RevokedVerifiableCredentials)
}

func TestSiopDirectPostFlow(t *testing.T) {
	issuerCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	holderCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	verifierCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)

	keys := map[string]interface{}{
		issuerCrypto.Identifier(): issuerCrypto.PublicKey(),
		holderCrypto.Identifier(): holderCrypto.PublicKey(),
	}
	resolver := func(kid string) (interface{}, error) {
		if pub, ok := keys[kid]; ok {
			return pub, nil
		}
		return nil, assert.AnError
	}

	holderValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	holderAgent := holder.NewAgent(holderCrypto, holderValidator)
	vcJws := signVc(t, issuerCrypto, holderCrypto)
	_, err = holderAgent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)

	wallet := siop.NewOidcSiopWallet(holderAgent)
	verifierValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	rpVerifier := siop.NewOidcSiopVerifier(verifierCrypto, verifierValidator)

	relyingPartyURL := "https://verifier.example/direct-post"
	requestURL, err := rpVerifier.CreateAuthnRequestURL("openid://wallet", relyingPartyURL, siop.ResponseModeDirectPost, nil, false)
	require.NoError(t, err)

	authnResponse, err := wallet.CreateAuthnResponse(requestURL)
	require.NoError(t, err)
	require.Equal(t, siop.AuthnResponsePost, authnResponse.Kind)
	assert.Equal(t, relyingPartyURL, authnResponse.URL)
	assert.Contains(t, authnResponse.Body, "id_token=")

	result, err := rpVerifier.ValidateAuthnResponse(authnResponse.Body, relyingPartyURL)
	require.NoError(t, err)
	assert.True(t, result.Presentation.IsSuccess())
}

func TestSiopWrongAudienceRejected(t *testing.T) {
	issuerCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	holderCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	verifierCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	otherVerifierCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)

	keys := map[string]interface{}{
		issuerCrypto.Identifier(): issuerCrypto.PublicKey(),
		holderCrypto.Identifier(): holderCrypto.PublicKey(),
	}
	resolver := func(kid string) (interface{}, error) {
		if pub, ok := keys[kid]; ok {
			return pub, nil
		}
		return nil, assert.AnError
	}

	holderValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	holderAgent := holder.NewAgent(holderCrypto, holderValidator)
	vcJws := signVc(t, issuerCrypto, holderCrypto)
	_, err = holderAgent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)

	wallet := siop.NewOidcSiopWallet(holderAgent)
	verifierValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	rpVerifier := siop.NewOidcSiopVerifier(verifierCrypto, verifierValidator)
	otherVerifierValidator := validator.NewValidator(&signing.ES256Verifier{}, resolver)
	imposterVerifier := siop.NewOidcSiopVerifier(otherVerifierCrypto, otherVerifierValidator)

	relyingPartyURL := "https://verifier.example/callback"
	requestURL, err := rpVerifier.CreateAuthnRequestURL("openid://wallet", relyingPartyURL, siop.ResponseModeFragment, nil, false)
	require.NoError(t, err)

	authnResponse, err := wallet.CreateAuthnResponse(requestURL)
	require.NoError(t, err)

	_, err = imposterVerifier.ValidateAuthnResponse(authnResponse.URL, relyingPartyURL)
	assert.Error(t, err)
}
