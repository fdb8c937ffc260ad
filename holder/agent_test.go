package holder_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrusage/kmm-vc-library/holder"
	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/revocation"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/validator"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

type fixture struct {
	issuer      *signing.ES256CryptoService
	holderCrypto *signing.ES256CryptoService
	resolver    jws.KeyResolver
	list        *revocation.RevocationList
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuerCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	holderCrypto, err := signing.NewES256CryptoService()
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
	return &fixture{issuer: issuerCrypto, holderCrypto: holderCrypto, resolver: resolver,
		list: revocation.NewRevocationList("2026-08", revocation.DefaultBitstringSize)}
}

func (f *fixture) signVc(t *testing.T, index int) string {
	t.Helper()
	now := time.Now()
	subject := vcmodel.AtomicAttribute{ID: "attr-1", Name: "givenName", Value: "Alice"}
	vc, err := vcmodel.NewVerifiableCredential("urn:uuid:vc-1", []string{"AtomicAttribute2023"}, f.issuer.Identifier(), now.Add(-time.Hour), now.Add(time.Hour), subject)
	require.NoError(t, err)
	if index >= 0 {
		vc.CredentialStatus = &vcmodel.CredentialStatus{StatusListIndex: index, StatusPurpose: "revocation"}
	}
	claims := vcmodel.NewVerifiableCredentialJws(*vc, f.holderCrypto.Identifier())
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	s, err := jws.Sign(payload, f.issuer, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return s
}

func (f *fixture) signRevocationListVc(t *testing.T) string {
	t.Helper()
	encoded, err := f.list.Encode()
	require.NoError(t, err)
	subject := vcmodel.StatusListSubject{ID: "urn:uuid:list-1", Type: "StatusList2021", StatusPurpose: "revocation", EncodedList: encoded}
	now := time.Now()
	vc, err := vcmodel.NewVerifiableCredential("urn:uuid:list-1", []string{"RevocationList2020Credential"}, f.issuer.Identifier(), now.Add(-time.Hour), now.Add(time.Hour), subject)
	require.NoError(t, err)
	claims := vcmodel.NewVerifiableCredentialJws(*vc, f.issuer.Identifier())
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	s, err := jws.Sign(payload, f.issuer, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return s
}

func TestStoreCredentialsHappyPath(t *testing.T) {
	f := newFixture(t)
	v := validator.NewValidator(&signing.ES256Verifier{}, f.resolver)
	agent := holder.NewAgent(f.holderCrypto, v)

	vcJws := f.signVc(t, -1)
	result, err := agent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Rejected)
	assert.Empty(t, result.NotVerified)
}

func TestStoreCredentialsSubjectMismatchIsNotVerified(t *testing.T) {
	f := newFixture(t)
	v := validator.NewValidator(&signing.ES256Verifier{}, f.resolver)
	other, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	agent := holder.NewAgent(other, v)

	vcJws := f.signVc(t, -1)
	result, err := agent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)
	assert.Empty(t, result.Accepted)
	assert.Len(t, result.NotVerified, 1)
}

func TestRevokeBeforeStoreRejects(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.list.Revoke(5))
	vcJws := f.signVc(t, 5)

	v := validator.NewValidator(&signing.ES256Verifier{}, f.resolver)
	agent := holder.NewAgent(f.holderCrypto, v)
	require.True(t, agent.SetRevocationList(f.signRevocationListVc(t)))

	result, err := agent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)
	assert.Empty(t, result.Accepted)
	assert.Len(t, result.Rejected, 1)
}

func TestRevokeAfterStorePreventsPresentation(t *testing.T) {
	f := newFixture(t)
	vcJws := f.signVc(t, 5)

	v := validator.NewValidator(&signing.ES256Verifier{}, f.resolver)
	agent := holder.NewAgent(f.holderCrypto, v)

	storeResult, err := agent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)
	require.Len(t, storeResult.Accepted, 1)

	require.NoError(t, f.list.Revoke(5))
	require.True(t, agent.SetRevocationList(f.signRevocationListVc(t)))

	presentation, err := agent.CreatePresentation("challenge-1", "verifier-key", nil)
	require.NoError(t, err)
	assert.Nil(t, presentation)

	entries, err := agent.GetCredentials(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, validator.StatusRevoked, entries[0].Status)
}

func TestCreatePresentationFiltersByType(t *testing.T) {
	f := newFixture(t)
	vcJws := f.signVc(t, -1)

	v := validator.NewValidator(&signing.ES256Verifier{}, f.resolver)
	agent := holder.NewAgent(f.holderCrypto, v)
	_, err := agent.StoreCredentials(context.Background(), []holder.CredentialInput{{VcJws: vcJws}})
	require.NoError(t, err)

	result, err := agent.CreatePresentation("challenge-1", "verifier-key", []string{"NoSuchType"})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = agent.CreatePresentation("challenge-1", "verifier-key", []string{"AtomicAttribute2023"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.VpJws)
}
