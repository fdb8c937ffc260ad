package siop

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/acrusage/kmm-vc-library/holder"
)

// OidcSiopWallet is the wallet side of spec.md §4.7's state machine: it
// turns an authn request URL into a signed id_token + vp_token
// response, delegating credential selection and VP signing to a
// HolderAgent.
type OidcSiopWallet struct {
	holder *holder.Agent
}

// NewOidcSiopWallet builds a wallet backed by h.
func NewOidcSiopWallet(h *holder.Agent) *OidcSiopWallet {
	return &OidcSiopWallet{holder: h}
}

// CreateAuthnResponse parses requestURL, validates it per spec.md §4.7
// step 2, selects and signs a presentation via the wallet's holder,
// and returns the response in the transport the request's
// response_mode names.
func (w *OidcSiopWallet) CreateAuthnResponse(requestURL string) (*AuthnResponse, error) {
	req, err := w.parseRequest(requestURL)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	attributeTypes := scopeToAttributeTypes(req.Scope)
	presentation, err := w.holder.CreatePresentation(req.Nonce, req.ClientMetadata.JwksVerifierKeyID, attributeTypes)
	if err != nil {
		return nil, fmt.Errorf("create presentation: %w", err)
	}
	if presentation == nil {
		return nil, newOAuth2Error(ErrInvalidRequest, "no matching credentials for request")
	}

	idTokenJws, err := buildAndSignIdToken(w.holder.SigningService(), req.RedirectURI, req.Nonce)
	if err != nil {
		return nil, fmt.Errorf("build id_token: %w", err)
	}

	var descriptors []InputDescriptor
	definitionID := ""
	if req.PresentationDefinition != nil {
		descriptors = req.PresentationDefinition.InputDescriptors
		definitionID = req.PresentationDefinition.ID
	}
	submission := buildPresentationSubmission(definitionID, descriptors)
	submissionJSON, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("marshal presentation_submission: %w", err)
	}

	values := url.Values{}
	values.Set("id_token", idTokenJws)
	values.Set("vp_token", presentation.VpJws)
	values.Set("state", req.State)
	values.Set("presentation_submission", string(submissionJSON))

	switch req.ResponseMode {
	case ResponseModeQuery:
		u, err := url.Parse(req.RedirectURI)
		if err != nil {
			return nil, fmt.Errorf("parse redirect_uri: %w", err)
		}
		u.RawQuery = values.Encode()
		return &AuthnResponse{Kind: AuthnResponseRedirect, URL: u.String()}, nil
	case ResponseModePost, ResponseModeDirectPost:
		return &AuthnResponse{Kind: AuthnResponsePost, URL: req.RedirectURI, Body: values.Encode()}, nil
	default: // ResponseModeFragment
		u, err := url.Parse(req.RedirectURI)
		if err != nil {
			return nil, fmt.Errorf("parse redirect_uri: %w", err)
		}
		u.Fragment = values.Encode()
		return &AuthnResponse{Kind: AuthnResponseRedirect, URL: u.String()}, nil
	}
}

// parseRequest extracts a RequestObject from requestURL's query
// parameters, or from a signed `request` JWT if present.
func (w *OidcSiopWallet) parseRequest(requestURL string) (*RequestObject, error) {
	u, err := url.Parse(requestURL)
	if err != nil {
		return nil, newOAuth2Error(ErrInvalidRequest, "malformed request url")
	}
	params := u.Query()

	if signedRequest := params.Get("request"); signedRequest != "" {
		return parseSignedRequestObject(signedRequest)
	}

	var metadata ClientMetadata
	if raw := params.Get("client_metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, newOAuth2Error(ErrInvalidRequest, "malformed client_metadata")
		}
	}
	var presentationDefinition *PresentationDefinition
	if raw := params.Get("presentation_definition"); raw != "" {
		presentationDefinition = &PresentationDefinition{}
		if err := json.Unmarshal([]byte(raw), presentationDefinition); err != nil {
			return nil, newOAuth2Error(ErrInvalidRequest, "malformed presentation_definition")
		}
	}

	return &RequestObject{
		ResponseType:           params.Get("response_type"),
		ResponseMode:           ResponseMode(params.Get("response_mode")),
		Scope:                  params.Get("scope"),
		Nonce:                  params.Get("nonce"),
		ClientID:               params.Get("client_id"),
		RedirectURI:            params.Get("redirect_uri"),
		State:                  params.Get("state"),
		ClientMetadata:         metadata,
		PresentationDefinition: presentationDefinition,
	}, nil
}

// parseSignedRequestObject decodes and verifies a `request` JWT
// against its own embedded jwk, mirroring the self-issued trust model
// id_tokens use — the relying party signs the request object with the
// same key it uses across the exchange.
func parseSignedRequestObject(requestJws string) (*RequestObject, error) {
	claims, err := decodeSignedRequestObject(requestJws)
	if err != nil {
		return nil, newOAuth2Error(ErrInvalidRequest, err.Error())
	}
	return claims, nil
}

func validateRequest(req *RequestObject) error {
	if req.State == "" {
		return newOAuth2Error(ErrInvalidRequest, "missing state")
	}
	if req.ClientID != req.RedirectURI {
		return newOAuth2Error(ErrInvalidRequest, "client_id must equal redirect_uri")
	}
	responseTypes := strings.Fields(req.ResponseType)
	if !slices.Contains(responseTypes, "id_token") {
		return newOAuth2Error(ErrInvalidRequest, "response_type must include id_token")
	}
	if !slices.Contains(responseTypes, "vp_token") && req.PresentationDefinition == nil {
		return newOAuth2Error(ErrInvalidRequest, "response_type must include vp_token or presentation_definition must be present")
	}
	if req.Nonce == "" {
		return newOAuth2Error(ErrInvalidRequest, "missing nonce")
	}
	if req.ClientMetadata.VPFormats == nil || req.ClientMetadata.VPFormats.JwtVp == nil ||
		!slices.Contains(req.ClientMetadata.VPFormats.JwtVp.Algorithms, "ES256") {
		return newOAuth2Error(ErrRegistrationValueNotSupported, "client_metadata.vp_formats.jwt_vp.algorithms must include ES256")
	}
	if !slices.Contains(req.ClientMetadata.SubjectSyntaxTypesSupported, "urn:ietf:params:oauth:jwk-thumbprint") {
		return newOAuth2Error(ErrSubjectSyntaxTypesNotSupported, "subject_syntax_types_supported must include urn:ietf:params:oauth:jwk-thumbprint")
	}
	if req.ClientMetadata.JwksVerifierKeyID == "" {
		return newOAuth2Error(ErrRegistrationValueNotSupported, "client_metadata missing verifier key id")
	}
	return nil
}

// scopeToAttributeTypes maps SIOP scope tokens onto Validator/holder
// attribute-type filters, dropping the standard "openid" scope value.
func scopeToAttributeTypes(scope string) []string {
	var out []string
	for _, tok := range strings.Fields(scope) {
		if tok == "openid" {
			continue
		}
		out = append(out, tok)
	}
	return out
}
