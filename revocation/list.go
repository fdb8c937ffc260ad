// Package revocation implements the RevocationList2020 bitstring
// spec.md §4.3 describes: a sparse bitstring of revoked credential
// indices, serialized as base64url(gzip(bits)) and wrapped in a signed
// VC by the issuer.
package revocation

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/acrusage/kmm-vc-library/vcmodel"
)

// DefaultBitstringSize is the minimum length spec.md §3 requires:
// 131,072 bits (16 KiB).
const DefaultBitstringSize = 131072

// RevocationList holds one time period's revocation bitstring.
type RevocationList struct {
	mu         sync.Mutex
	bits       []byte // big-endian packed, len == size/8
	size       int
	timePeriod string
	rng        *rand.Rand
	usedIdx    map[int]bool
}

// NewRevocationList creates an all-zero list of size bits (default
// DefaultBitstringSize) for the given time period, seeding the
// pseudorandom index allocator deterministically from the period
// string: two lists created for the same period draw the same sequence
// of candidate indices. Collisions are avoided only within one list
// instance, through its own set of reserved indices.
func NewRevocationList(timePeriod string, size int) *RevocationList {
	if size <= 0 {
		size = DefaultBitstringSize
	}
	seed := int64(0)
	for _, b := range []byte(timePeriod) {
		seed = seed*31 + int64(b)
	}
	return &RevocationList{
		bits:       make([]byte, size/8),
		size:       size,
		timePeriod: timePeriod,
		rng:        rand.New(rand.NewSource(seed)),
		usedIdx:    make(map[int]bool),
	}
}

// TimePeriod returns the period identifier this list was created for.
func (l *RevocationList) TimePeriod() string { return l.timePeriod }

// Size returns the bitstring length in bits.
func (l *RevocationList) Size() int { return l.size }

// PeekIndex chooses the next unused index, pseudorandomly within
// [0, size) per spec.md §4.3 to avoid leaking issuance order, using
// rejection sampling against already-reserved indices within this
// period (a Fisher–Yates-style draw without materializing a full
// permutation, since size is large and only a small fraction is ever
// allocated in practice). Unlike Reserve, PeekIndex does not mark the
// index used — callers embed it in the credential they are about to
// build and only call Reserve once that credential is fully signed, so
// a marshal/sign failure never burns an index (spec.md §5).
func (l *RevocationList) PeekIndex() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.usedIdx) >= l.size {
		return 0, fmt.Errorf("revocation list %q is exhausted (%d indices)", l.timePeriod, l.size)
	}
	for {
		candidate := l.rng.Intn(l.size)
		if !l.usedIdx[candidate] {
			return candidate, nil
		}
	}
}

// Reserve marks index used, committing a PeekIndex result once its
// credential has been built and signed. Idempotent for a given index.
func (l *RevocationList) Reserve(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= l.size {
		return fmt.Errorf("index %d out of range [0, %d)", index, l.size)
	}
	l.usedIdx[index] = true
	return nil
}

// Revoke sets the bit at index. Idempotent and monotonic — once set, a
// bit is never cleared (spec.md §8 "revocation monotonicity").
func (l *RevocationList) Revoke(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= l.size {
		return fmt.Errorf("index %d out of range [0, %d)", index, l.size)
	}
	byteIdx, bitIdx := index/8, index%8
	l.bits[byteIdx] |= 1 << (7 - bitIdx)
	return nil
}

// IsRevoked reports whether the bit at index is set.
func (l *RevocationList) IsRevoked(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= l.size {
		return false
	}
	byteIdx, bitIdx := index/8, index%8
	return (l.bits[byteIdx]>>(7-bitIdx))&1 == 1
}

// Encode returns base64url(gzip(bits)) per spec.md §4.3/§6.
func (l *RevocationList) Encode() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return encodeBits(l.bits)
}

func encodeBits(bits []byte) (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(bits); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeInto replaces l's bitstring with the decoded contents of
// encoded. Returns an error (per spec.md §4.3 "fails -> false") on any
// malformed input; callers surface that as a boolean per the spec's
// contract.
func (l *RevocationList) DecodeInto(encoded string) error {
	bits, err := decodeBits(encoded)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bits = bits
	l.size = len(bits) * 8
	return nil
}

func decodeBits(encoded string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64url decode: %w", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()
	bits, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return bits, nil
}

// DecodeStandalone decodes an encoded bitstring without an existing
// RevocationList, used by holders/verifiers that only need to check a
// status, not maintain one (spec.md §4.2 setRevocationList).
func DecodeStandalone(encoded string) (*RevocationList, error) {
	bits, err := decodeBits(encoded)
	if err != nil {
		return nil, err
	}
	return &RevocationList{bits: bits, size: len(bits) * 8, usedIdx: map[int]bool{}}, nil
}

// ID returns a content-addressed urn:uuid for this list's VC id,
// derived from the time period and the bitstring's current digest
// (SPEC_FULL.md §4.3). Two processes issuing an all-zero list for the
// same still-empty period converge on the same id.
func (l *RevocationList) ID() (string, error) {
	l.mu.Lock()
	digestInput := map[string]interface{}{
		"@context": map[string]string{
			"period": "https://www.w3.org/ns/credentials/status#period",
			"digest": "https://www.w3.org/ns/credentials/status#digest",
		},
		"period": l.timePeriod,
		"digest": fmt.Sprintf("%x", sha256.Sum256(l.bits)),
	}
	l.mu.Unlock()

	canon, err := vcmodel.CanonicalizeForThumbprint(digestInput)
	if err != nil {
		// Canonicalization is a best-effort determinism aid; fall back
		// to a fresh random id rather than fail list issuance.
		return "urn:uuid:" + uuid.NewString(), nil //nolint:nilerr
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceOID, canon).String(), nil
}
