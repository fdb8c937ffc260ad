package vcmodel

import (
	"crypto/sha256"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

// CanonicalizeForThumbprint produces a stable digest of a JSON-LD-ish
// document (here, just a plain map — no remote @context fetch is
// needed for the fixed vocabulary this module uses) via URDNA2015
// normalization, grounded on the teacher's vc/processor.go
// CanonicalizeDocument/ComputeDigest pair.
func CanonicalizeForThumbprint(doc map[string]interface{}) ([]byte, error) {
	processor := ld.NewJsonLdProcessor()
	options := ld.NewJsonLdOptions("")
	options.Format = "application/n-quads"
	options.Algorithm = "URDNA2015"
	options.DocumentLoader = ld.NewDefaultDocumentLoader(nil)

	normalized, err := processor.Normalize(doc, options)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	nquads, ok := normalized.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected normalize result type %T", normalized)
	}
	digest := sha256.Sum256([]byte(nquads))
	return digest[:], nil
}
