package jws

import "errors"

// ErrInvalidStructure means the input could not be parsed as a
// three-segment compact JWS, its header was malformed, or its alg is not
// in the whitelist (spec.md §4.1).
var ErrInvalidStructure = errors.New("jws: invalid structure")

// ErrInvalidSignature means the JWS parsed but the signature did not
// verify, or the verification key could not be resolved.
var ErrInvalidSignature = errors.New("jws: invalid signature")
