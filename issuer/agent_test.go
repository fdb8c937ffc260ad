package issuer_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrusage/kmm-vc-library/issuer"
	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

type staticDataProvider struct{}

func (staticDataProvider) GetCredential(ctx context.Context, subjectKeyID, credentialType string) (vcmodel.CredentialSubject, map[string][]byte, error) {
	return vcmodel.AtomicAttribute{ID: "attr-1", Name: "givenName", Value: "Alice"}, nil, nil
}

func newAgent(t *testing.T) *issuer.Agent {
	t.Helper()
	crypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	return issuer.NewAgent(crypto, staticDataProvider{})
}

func TestIssueCredentialWithTypesSuccess(t *testing.T) {
	agent := newAgent(t)
	result, err := agent.IssueCredentialWithTypes(context.Background(), "holder-key", []string{"AtomicAttribute2023"})
	require.NoError(t, err)
	require.Len(t, result.Successful, 1)
	assert.Empty(t, result.Failed)
	assert.NotEmpty(t, result.Successful[0].VcJws)

	parsed, err := jws.Parse(result.Successful[0].VcJws)
	require.NoError(t, err)
	assert.Equal(t, "ES256", parsed.Header.Alg)
}

func TestIssueCredentialWithTypesDataProviderFailure(t *testing.T) {
	crypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	failing := issuer.NewAgent(crypto, failingDataProvider{})

	result, err := failing.IssueCredentialWithTypes(context.Background(), "holder-key", []string{"UnknownType"})
	require.NoError(t, err)
	assert.Empty(t, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "UnknownType", result.Failed[0].CredentialType)
}

type failingDataProvider struct{}

func (failingDataProvider) GetCredential(ctx context.Context, subjectKeyID, credentialType string) (vcmodel.CredentialSubject, map[string][]byte, error) {
	return nil, nil, assert.AnError
}

func TestRevokeCredentialsAndIssueRevocationList(t *testing.T) {
	agent := newAgent(t)
	issued, err := agent.IssueCredentialWithTypes(context.Background(), "holder-key", []string{"AtomicAttribute2023"})
	require.NoError(t, err)
	require.Len(t, issued.Successful, 1)

	ok, err := agent.RevokeCredentials(context.Background(), []string{issued.Successful[0].VcJws})
	require.NoError(t, err)
	assert.True(t, ok)

	period := issued.Successful[0].VC.CredentialStatus
	require.NotNil(t, period)

	entries, err := agent.CredentialsFor(context.Background(), "holder-key")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Revoked)

	listJws, err := agent.IssueRevocationListCredential(context.Background(), entries[0].TimePeriod)
	require.NoError(t, err)
	require.NotEmpty(t, listJws)

	parsed, err := jws.Parse(listJws)
	require.NoError(t, err)
	var claims vcmodel.VerifiableCredentialJws
	require.NoError(t, json.Unmarshal(parsed.Payload, &claims))
	assert.Equal(t, "RevocationList2020Credential", claims.VC.Type[1])
}

func TestRevokeCredentialsUnknownJwsReturnsFalse(t *testing.T) {
	agent := newAgent(t)
	otherCrypto, err := signing.NewES256CryptoService()
	require.NoError(t, err)
	otherAgent := issuer.NewAgent(otherCrypto, staticDataProvider{})
	issuedElsewhere, err := otherAgent.IssueCredentialWithTypes(context.Background(), "holder-key", []string{"AtomicAttribute2023"})
	require.NoError(t, err)

	ok, err := agent.RevokeCredentials(context.Background(), []string{issuedElsewhere.Successful[0].VcJws})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssueRevocationListCredentialEmptyPeriodReturnsEmpty(t *testing.T) {
	agent := newAgent(t)
	listJws, err := agent.IssueRevocationListCredential(context.Background(), "2099-01")
	require.NoError(t, err)
	assert.Empty(t, listJws)
}
