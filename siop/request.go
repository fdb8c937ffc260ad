package siop

// ResponseMode is the transport spec.md §4.7 step 1 lets the verifier
// choose for the wallet's authn response.
type ResponseMode string

const (
	ResponseModeFragment   ResponseMode = "fragment"
	ResponseModeQuery      ResponseMode = "query"
	ResponseModePost       ResponseMode = "post"
	ResponseModeDirectPost ResponseMode = "direct_post"
)

// JwtVpFormat names the JWS algorithms a relying party accepts for
// jwt_vp presentations.
type JwtVpFormat struct {
	Algorithms []string `json:"alg"`
}

// VPFormats is the vp_formats member of client_metadata.
type VPFormats struct {
	JwtVp *JwtVpFormat `json:"jwt_vp,omitempty"`
}

// ClientMetadata is spec.md §4.7's `client_metadata`, declaring the
// relying party's supported algorithms, formats, and subject syntax
// types — named RequestObjectRegistration in the OID4VP ecosystem this
// is drawn from (trustbloc-vcs oidc4vp_service.go's
// RequestObjectRegistration), kept here under the wire field name spec.md
// uses.
type ClientMetadata struct {
	ClientName                  string     `json:"client_name,omitempty"`
	SubjectSyntaxTypesSupported []string   `json:"subject_syntax_types_supported"`
	VPFormats                   *VPFormats `json:"vp_formats"`
	ClientPurpose               string     `json:"client_purpose,omitempty"`

	// JwksVerifierKeyID is the relying party's own kid, standing in for
	// the "audienceFromClientMetadataJwks" derivation spec.md §4.7 step 2
	// names: the wallet reads the verifier's key id from client_metadata
	// rather than from client_id/redirect_uri, which name a URL, not a key.
	JwksVerifierKeyID string `json:"jwks_verifier_key_id,omitempty"`
}

// InputDescriptor names one credential slot a presentation_definition
// asks the wallet to fill.
type InputDescriptor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Purpose     string   `json:"purpose,omitempty"`
	SchemaTypes []string `json:"schema_types,omitempty"`
}

// PresentationDefinition is the DIF Presentation Exchange object named
// in spec.md §4.7 step 1.
type PresentationDefinition struct {
	ID               string             `json:"id"`
	InputDescriptors []InputDescriptor  `json:"input_descriptors"`
}

// RequestObject is the SIOPv2 authorization request, either sent
// inline as query/fragment parameters or as a signed JWT `request`
// value (spec.md §6), grounded on trustbloc-vcs' oidc4vp_service.go
// RequestObject shape.
type RequestObject struct {
	JTI                     string                   `json:"jti"`
	IAT                     int64                    `json:"iat"`
	ISS                     string                   `json:"iss"`
	ResponseType            string                   `json:"response_type"`
	ResponseMode            ResponseMode             `json:"response_mode"`
	Scope                   string                   `json:"scope"`
	Nonce                   string                   `json:"nonce"`
	ClientID                string                   `json:"client_id"`
	RedirectURI             string                   `json:"redirect_uri"`
	State                   string                   `json:"state"`
	Exp                     int64                    `json:"exp"`
	ClientMetadata          ClientMetadata           `json:"client_metadata"`
	PresentationDefinition  *PresentationDefinition  `json:"presentation_definition,omitempty"`
}
