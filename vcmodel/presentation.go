package vcmodel

// VerifiablePresentation wraps an ordered list of raw VC-JWS strings
// (spec.md §3).
type VerifiablePresentation struct {
	ID                    string   `json:"id"`
	Type                  []string `json:"type"`
	Holder                string   `json:"holder"`
	VerifiableCredential  []string `json:"verifiableCredential"`
}

// NewVerifiablePresentation builds a VP with the fixed type list
// spec.md §3 requires.
func NewVerifiablePresentation(id, holder string, vcJwsList []string) VerifiablePresentation {
	return VerifiablePresentation{
		ID:                   id,
		Type:                 []string{"VerifiablePresentation"},
		Holder:               holder,
		VerifiableCredential: vcJwsList,
	}
}
