// Package holder implements spec.md §4.5: the subject-side credential
// store and the HolderAgent that stores, filters, and presents
// verifiable credentials.
package holder

// StoreEntry is spec.md §3's SubjectCredentialStore entry: the raw
// VC-JWS plus whatever opaque attachments the issuer bundled with it.
type StoreEntry struct {
	VcJws       string
	Attachments map[string][]byte
}

// CredentialStore holds every credential this holder has accepted,
// keyed by VC id (jti).
type CredentialStore struct {
	entries map[string]StoreEntry
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{entries: make(map[string]StoreEntry)}
}

// Put inserts or overwrites the entry for vcID.
func (s *CredentialStore) Put(vcID string, entry StoreEntry) {
	s.entries[vcID] = entry
}

// All returns every stored entry.
func (s *CredentialStore) All() map[string]StoreEntry {
	return s.entries
}
