// Package issuer implements spec.md §4.4/§4.5: the issuer-side
// credential store and the IssuerAgent that issues, revokes, and
// republishes revocation-list credentials.
package issuer

import "time"

// StoreEntry is spec.md §4.5's IssuerCredentialStore entry: created on
// issue, mutated only by Revoke.
type StoreEntry struct {
	VcID            string
	StatusListIndex int
	CredentialType  string
	SubjectKeyID    string
	IssuanceDate    time.Time
	ExpirationDate  time.Time
	Revoked         bool
	TimePeriod      string
}

// CredentialStore holds every entry this issuer has ever created,
// keyed by VC id (jti) for revocation lookups.
type CredentialStore struct {
	entries map[string]*StoreEntry
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{entries: make(map[string]*StoreEntry)}
}

// Put inserts or overwrites the entry for entry.VcID.
func (s *CredentialStore) Put(entry *StoreEntry) {
	s.entries[entry.VcID] = entry
}

// Get looks up an entry by VC id.
func (s *CredentialStore) Get(vcID string) (*StoreEntry, bool) {
	e, ok := s.entries[vcID]
	return e, ok
}

// EntriesForPeriod returns every entry issued within timePeriod, used
// when building that period's RevocationList VC.
func (s *CredentialStore) EntriesForPeriod(timePeriod string) []*StoreEntry {
	var out []*StoreEntry
	for _, e := range s.entries {
		if e.TimePeriod == timePeriod {
			out = append(out, e)
		}
	}
	return out
}
