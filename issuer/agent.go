package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/acrusage/kmm-vc-library/jws"
	"github.com/acrusage/kmm-vc-library/revocation"
	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/vcmodel"
)

// DataProvider supplies subject claims and optional opaque attachments
// for a (subjectKeyId, credentialType) pair (spec.md §7).
type DataProvider interface {
	GetCredential(ctx context.Context, subjectKeyID, credentialType string) (vcmodel.CredentialSubject, map[string][]byte, error)
}

// IssuedCredential is one successfully issued credential.
type IssuedCredential struct {
	CredentialType string
	VcJws          string
	VC             vcmodel.VerifiableCredential
	Attachments    map[string][]byte
}

// FailureReason names a credential type this issuance attempt failed for.
type FailureReason struct {
	CredentialType string
	Err            error
}

// IssuedCredentialResult is issueCredentialWithTypes's return value.
type IssuedCredentialResult struct {
	Successful []IssuedCredential
	Failed     []FailureReason
}

// Agent issues credentials, revokes them by JWS reference, and
// publishes RevocationList credentials, per spec.md §4.4. All mutating
// operations are serialized through sem, grounded on the concurrency
// model spec.md §5 describes.
type Agent struct {
	crypto       signing.CryptoService
	dataProvider DataProvider
	store        *CredentialStore
	lists        map[string]*revocation.RevocationList
	sem          *semaphore.Weighted
	clock        func() time.Time
	validFor     time.Duration
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithClock overrides the default time.Now-based clock.
func WithClock(c func() time.Time) Option {
	return func(a *Agent) { a.clock = c }
}

// WithValidity overrides the default 1-year credential validity window.
func WithValidity(d time.Duration) Option {
	return func(a *Agent) { a.validFor = d }
}

// NewAgent builds an issuer bound to crypto's signing key and dataProvider.
func NewAgent(crypto signing.CryptoService, dataProvider DataProvider, opts ...Option) *Agent {
	a := &Agent{
		crypto:       crypto,
		dataProvider: dataProvider,
		store:        NewCredentialStore(),
		lists:        make(map[string]*revocation.RevocationList),
		sem:          semaphore.NewWeighted(1),
		clock:        time.Now,
		validFor:     365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Identifier returns this issuer's kid.
func (a *Agent) Identifier() string { return a.crypto.Identifier() }

func (a *Agent) currentPeriod() string {
	return a.clock().UTC().Format("2006-01")
}

func (a *Agent) listForPeriod(period string) *revocation.RevocationList {
	list, ok := a.lists[period]
	if !ok {
		log.Printf("issuer %s: rolling over to revocation list period %s", a.crypto.Identifier(), period)
		list = revocation.NewRevocationList(period, revocation.DefaultBitstringSize)
		a.lists[period] = list
	}
	return list
}

// IssueCredentialWithTypes issues one VC per requested type, per
// spec.md §4.4. Serialized per-instance; a caller-cancelled ctx aborts
// before an index is reserved for any type not yet committed to the
// store.
func (a *Agent) IssueCredentialWithTypes(ctx context.Context, subjectKeyID string, types []string) (*IssuedCredentialResult, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire issuer lock: %w", err)
	}
	defer a.sem.Release(1)

	result := &IssuedCredentialResult{}
	period := a.currentPeriod()
	list := a.listForPeriod(period)

	for _, credType := range types {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: err})
			continue
		}

		subjectClaims, attachments, err := a.dataProvider.GetCredential(ctx, subjectKeyID, credType)
		if err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("data provider: %w", err)})
			continue
		}

		now := a.clock()
		vc, err := vcmodel.NewVerifiableCredential("urn:uuid:"+uuid.NewString(), []string{credType}, a.crypto.Identifier(), now, now.Add(a.validFor), subjectClaims)
		if err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("build vc: %w", err)})
			continue
		}

		index, err := list.PeekIndex()
		if err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("allocate revocation index: %w", err)})
			continue
		}
		vc.CredentialStatus = &vcmodel.CredentialStatus{StatusListIndex: index, StatusPurpose: "revocation"}

		claims := vcmodel.NewVerifiableCredentialJws(*vc, subjectKeyID)
		payload, err := json.Marshal(claims)
		if err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("marshal claims: %w", err)})
			continue
		}
		vcJws, err := jws.Sign(payload, a.crypto, jws.SignOptions{IncludeKid: true})
		if err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("sign: %w", err)})
			continue
		}

		// The index is only reserved from the pool once the credential
		// embedding it has been fully built and signed, so a marshal or
		// sign failure above never permanently burns it.
		if err := list.Reserve(index); err != nil {
			result.Failed = append(result.Failed, FailureReason{CredentialType: credType, Err: fmt.Errorf("reserve revocation index: %w", err)})
			continue
		}

		a.store.Put(&StoreEntry{
			VcID:            vc.ID,
			StatusListIndex: index,
			CredentialType:  credType,
			SubjectKeyID:    subjectKeyID,
			IssuanceDate:    now,
			ExpirationDate:  now.Add(a.validFor),
			TimePeriod:      period,
		})

		result.Successful = append(result.Successful, IssuedCredential{
			CredentialType: credType,
			VcJws:          vcJws,
			VC:             *vc,
			Attachments:    attachments,
		})
	}

	return result, nil
}

// RevokeCredentials parses each VC-JWS, locates its store entry by
// jti, and sets its revoked bit both in the store and in the
// corresponding period's RevocationList. Returns true iff every listed
// credential was found and revoked (spec.md §4.4).
func (a *Agent) RevokeCredentials(ctx context.Context, vcJwsList []string) (bool, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire issuer lock: %w", err)
	}
	defer a.sem.Release(1)

	allFound := true
	for _, vcJws := range vcJwsList {
		parsed, err := jws.Parse(vcJws)
		if err != nil {
			allFound = false
			continue
		}
		var claims vcmodel.VerifiableCredentialJws
		if err := json.Unmarshal(parsed.Payload, &claims); err != nil {
			allFound = false
			continue
		}
		entry, ok := a.store.Get(claims.JwtID)
		if !ok {
			allFound = false
			continue
		}
		entry.Revoked = true
		list := a.listForPeriod(entry.TimePeriod)
		if err := list.Revoke(entry.StatusListIndex); err != nil {
			allFound = false
			continue
		}
		log.Printf("issuer %s: revoked credential %s (period %s, index %d)", a.crypto.Identifier(), entry.VcID, entry.TimePeriod, entry.StatusListIndex)
	}
	return allFound, nil
}

// IssueRevocationListCredential builds and signs a RevocationList VC
// for timePeriod, or returns "" if no credential was ever issued in
// that period.
func (a *Agent) IssueRevocationListCredential(ctx context.Context, timePeriod string) (string, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire issuer lock: %w", err)
	}
	defer a.sem.Release(1)

	list, ok := a.lists[timePeriod]
	if !ok {
		return "", nil
	}
	if len(a.store.EntriesForPeriod(timePeriod)) == 0 {
		return "", nil
	}

	encoded, err := list.Encode()
	if err != nil {
		return "", fmt.Errorf("encode revocation list: %w", err)
	}
	id, err := list.ID()
	if err != nil {
		return "", fmt.Errorf("derive revocation list id: %w", err)
	}

	subject := vcmodel.StatusListSubject{
		ID:            id,
		Type:          "StatusList2021",
		StatusPurpose: "revocation",
		EncodedList:   encoded,
	}
	now := a.clock()
	vc, err := vcmodel.NewVerifiableCredential(id, []string{"RevocationList2020Credential"}, a.crypto.Identifier(), now, now.Add(a.validFor), subject)
	if err != nil {
		return "", fmt.Errorf("build revocation list vc: %w", err)
	}

	claims := vcmodel.NewVerifiableCredentialJws(*vc, a.crypto.Identifier())
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	return jws.Sign(payload, a.crypto, jws.SignOptions{IncludeKid: true})
}

// CredentialsFor is a read-only query returning what this issuer
// believes it has issued to subjectKeyID, used by holders reconciling
// their local store against the issuer's record.
func (a *Agent) CredentialsFor(ctx context.Context, subjectKeyID string) ([]StoreEntry, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire issuer lock: %w", err)
	}
	defer a.sem.Release(1)

	var out []StoreEntry
	for _, e := range a.store.entries {
		if e.SubjectKeyID == subjectKeyID {
			out = append(out, *e)
		}
	}
	return out, nil
}
