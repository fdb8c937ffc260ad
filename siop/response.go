package siop

// IdToken is the SIOPv2 id_token claim set (spec.md §4.7 step 2).
type IdToken struct {
	Issuer         string                `json:"iss"`
	Subject        string                `json:"sub"`
	Audience       string                `json:"aud"`
	IssuedAt       int64                 `json:"iat"`
	ExpirationTime int64                 `json:"exp"`
	Nonce          string                `json:"nonce"`
	SubjectJwk     map[string]interface{} `json:"sub_jwk"`
}

// Descriptor is one entry of a PresentationSubmission's descriptor_map,
// pointing at where a credential lives within the vp_token.
type Descriptor struct {
	ID         string      `json:"id"`
	Format     string      `json:"format"`
	Path       string      `json:"path"`
	PathNested *Descriptor `json:"path_nested,omitempty"`
}

// PresentationSubmission is spec.md §4.7 step 2's descriptor set,
// mapping each requested input_descriptor to where its credential
// appears in the returned vp_token.
type PresentationSubmission struct {
	ID            string       `json:"id"`
	DefinitionID  string       `json:"definition_id"`
	DescriptorMap []Descriptor `json:"descriptor_map"`
}

// buildPresentationSubmission produces one jwt_vp descriptor per input
// descriptor, per spec.md §4.7 step 2: "one per descriptor, format=jwt_vp,
// path=$, nested jwt_vc path=$.verifiableCredential[0]".
func buildPresentationSubmission(definitionID string, descriptors []InputDescriptor) PresentationSubmission {
	sub := PresentationSubmission{ID: "urn:uuid:" + newUUID(), DefinitionID: definitionID}
	for _, d := range descriptors {
		sub.DescriptorMap = append(sub.DescriptorMap, Descriptor{
			ID:     d.ID,
			Format: "jwt_vp",
			Path:   "$",
			PathNested: &Descriptor{
				ID:     d.ID,
				Format: "jwt_vc",
				Path:   "$.verifiableCredential[0]",
			},
		})
	}
	return sub
}

// AuthnResponseKind tags the transport an AuthnResponse carries.
type AuthnResponseKind int

const (
	AuthnResponseRedirect AuthnResponseKind = iota
	AuthnResponsePost
)

// AuthnResponse is createAuthnResponse's return value: a redirect URL
// (fragment/query mode) or a POST body (post/direct_post mode), per
// spec.md §4.7 step 2.
type AuthnResponse struct {
	Kind AuthnResponseKind
	URL  string
	Body string // application/x-www-form-urlencoded, populated for AuthnResponsePost
}
