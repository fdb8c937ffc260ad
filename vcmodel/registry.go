package vcmodel

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// SubjectVariant describes one entry in the CredentialSubject extension
// registry (spec.md §9's "LibraryInitializer").
type SubjectVariant struct {
	// TypeTag names the variant, used only in registration error
	// messages; the wire format has no discriminator field of its own.
	TypeTag string
	// Schema is an optional JSON Schema (as a string) the variant's
	// example payload is checked against at registration time.
	Schema string
	// Example is a JSON payload conforming to this variant, validated
	// against Schema (if set) when the variant is registered.
	Example json.RawMessage
	// New returns a fresh, addressable zero value for json.Unmarshal.
	New func() CredentialSubject
	// RequiredFields are JSON object keys that must be present (not
	// merely zero-valued after decode) for a payload to match this
	// variant. Without this, any object unmarshals cleanly into any
	// all-optional struct and the first-registered variant always wins.
	RequiredFields []string
}

// subjectRegistry is the write-once-at-init registry: Register succeeds
// only until Lock is called, after which it is read-only and safe to
// share across goroutines without further synchronization (spec.md §9).
type subjectRegistry struct {
	mu       sync.Mutex
	locked   bool
	variants []SubjectVariant
}

var globalRegistry = newSubjectRegistry()

func newSubjectRegistry() *subjectRegistry {
	r := &subjectRegistry{}
	r.mustRegisterBuiltins()
	return r
}

func (r *subjectRegistry) mustRegisterBuiltins() {
	r.variants = append(r.variants,
		SubjectVariant{
			TypeTag:        "StatusListSubject",
			New:            func() CredentialSubject { return &StatusListSubject{} },
			RequiredFields: []string{"encodedList", "statusPurpose"},
		},
		SubjectVariant{
			// AtomicAttribute is the catch-all fallback: any object
			// unmarshals into it, so it must stay last in registration
			// order — more specific variants are tried first.
			TypeTag: "AtomicAttribute",
			New:     func() CredentialSubject { return &AtomicAttribute{} },
		},
	)
}

// RegisterSubjectVariant adds a new CredentialSubject variant ahead of
// the built-in fallback. It fails once the registry has been locked via
// LibraryInitializer.Lock, and fails if the variant declares a Schema
// but its Example does not validate against it.
func RegisterSubjectVariant(v SubjectVariant) error {
	return globalRegistry.register(v)
}

func (r *subjectRegistry) register(v SubjectVariant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return fmt.Errorf("subject registry is locked: register variants before LibraryInitializer.Lock")
	}
	if v.New == nil {
		return fmt.Errorf("variant %q: New is required", v.TypeTag)
	}
	if v.Schema != "" {
		if err := validateAgainstSchema(v.Schema, v.Example); err != nil {
			return fmt.Errorf("variant %q: example does not satisfy schema: %w", v.TypeTag, err)
		}
	}

	// New variants are inserted ahead of the built-in fallback so the
	// fallback (AtomicAttribute) always runs last.
	r.variants = append(r.variants[:len(r.variants)-1], append([]SubjectVariant{v}, r.variants[len(r.variants)-1:]...)...)
	return nil
}

func validateAgainstSchema(schema string, example json.RawMessage) error {
	if len(example) == 0 {
		return fmt.Errorf("schema given without an example payload")
	}
	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(example)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("example invalid: %v", result.Errors())
	}
	return nil
}

// LibraryInitializer locks the subject registry, matching spec.md §9's
// "write-once-at-init" contract: after Lock, the registry is
// effectively immutable and freely shared for read.
type LibraryInitializer struct{}

// Lock freezes the registry. Idempotent.
func (LibraryInitializer) Lock() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.locked = true
}

func (r *subjectRegistry) decode(raw json.RawMessage) (CredentialSubject, error) {
	r.mu.Lock()
	variants := append([]SubjectVariant(nil), r.variants...)
	r.mu.Unlock()

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("credentialSubject is not a JSON object: %w", err)
	}

	for _, v := range variants {
		if !hasAllKeys(asMap, v.RequiredFields) {
			continue
		}
		candidate := v.New()
		if err := json.Unmarshal(raw, candidate); err == nil {
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("no registered credential subject variant matched payload")
}

func hasAllKeys(m map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
