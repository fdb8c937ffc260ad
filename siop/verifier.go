package siop

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/acrusage/kmm-vc-library/signing"
	"github.com/acrusage/kmm-vc-library/validator"
)

// pendingRequest is what a verifier remembers between issuing an
// authn request and validating its response.
type pendingRequest struct {
	nonce           string
	relyingPartyURL string
	createdAt       time.Time
}

// OidcSiopVerifier is the relying-party side of spec.md §4.7's state
// machine: it issues authn request URLs and validates the resulting
// id_token/vp_token pair.
type OidcSiopVerifier struct {
	crypto    signing.CryptoService
	validator *validator.Validator

	mu       sync.Mutex
	pending  map[string]pendingRequest
	requestValidity time.Duration
}

// NewOidcSiopVerifier builds a verifier identified by crypto's kid.
func NewOidcSiopVerifier(crypto signing.CryptoService, v *validator.Validator) *OidcSiopVerifier {
	return &OidcSiopVerifier{
		crypto:          crypto,
		validator:       v,
		pending:         make(map[string]pendingRequest),
		requestValidity: 5 * time.Minute,
	}
}

// Identifier returns this verifier's kid.
func (v *OidcSiopVerifier) Identifier() string { return v.crypto.Identifier() }

// CreateAuthnRequestURL builds a SIOPv2 authorization request URL
// against walletUrl for relyingPartyUrl, storing a fresh nonce under a
// fresh state (spec.md §4.7 step 1). responseMode defaults to
// ResponseModeFragment when empty. When signed is true, the request
// parameters are wrapped in a signed `request` JWT instead of sent as
// plain query parameters (spec.md §6's optional signed-request form).
func (v *OidcSiopVerifier) CreateAuthnRequestURL(walletURL, relyingPartyURL string, responseMode ResponseMode, presentationDefinition *PresentationDefinition, signed bool) (string, error) {
	if responseMode == "" {
		responseMode = ResponseModeFragment
	}
	state := newUUID()
	nonce := newUUID()

	v.mu.Lock()
	v.pending[state] = pendingRequest{nonce: nonce, relyingPartyURL: relyingPartyURL, createdAt: clockNow()}
	v.mu.Unlock()

	metadata := ClientMetadata{
		SubjectSyntaxTypesSupported: []string{"urn:ietf:params:oauth:jwk-thumbprint"},
		VPFormats:                   &VPFormats{JwtVp: &JwtVpFormat{Algorithms: []string{"ES256"}}},
		JwksVerifierKeyID:           v.crypto.Identifier(),
	}

	ro := &RequestObject{
		JTI:                    newUUID(),
		IAT:                    clockNow().Unix(),
		ISS:                    relyingPartyURL,
		ResponseType:           "id_token vp_token",
		ResponseMode:           responseMode,
		Scope:                  "openid",
		Nonce:                  nonce,
		ClientID:               relyingPartyURL,
		RedirectURI:            relyingPartyURL,
		State:                  state,
		Exp:                    clockNow().Add(v.requestValidity).Unix(),
		ClientMetadata:         metadata,
		PresentationDefinition: presentationDefinition,
	}

	base, err := url.Parse(walletURL)
	if err != nil {
		return "", fmt.Errorf("parse wallet url: %w", err)
	}

	if signed {
		requestJws, err := signRequestObject(ro, v.crypto)
		if err != nil {
			return "", fmt.Errorf("sign request object: %w", err)
		}
		params := url.Values{}
		params.Set("client_id", relyingPartyURL)
		params.Set("request", requestJws)
		base.RawQuery = params.Encode()
		return base.String(), nil
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal client_metadata: %w", err)
	}
	params := url.Values{}
	params.Set("response_type", ro.ResponseType)
	params.Set("client_id", ro.ClientID)
	params.Set("redirect_uri", ro.RedirectURI)
	params.Set("response_mode", string(ro.ResponseMode))
	params.Set("scope", ro.Scope)
	params.Set("state", ro.State)
	params.Set("nonce", ro.Nonce)
	params.Set("client_metadata", string(metadataJSON))
	if presentationDefinition != nil {
		pdJSON, err := json.Marshal(presentationDefinition)
		if err != nil {
			return "", fmt.Errorf("marshal presentation_definition: %w", err)
		}
		params.Set("presentation_definition", string(pdJSON))
	}
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// AuthnResult is validateAuthnResponse's return value.
type AuthnResult struct {
	IdToken       IdToken
	Presentation  validator.VerifyPresentationResult
}

// ValidateAuthnResponse parses and verifies the id_token JWS, checks
// nonce/audience/temporal bounds, then verifies the vp_token via the
// Validator with challenge=nonce, audience=this verifier's identifier
// (spec.md §4.7 step 3).
func (v *OidcSiopVerifier) ValidateAuthnResponse(responseURL string, expectedRelyingPartyURL string) (*AuthnResult, error) {
	params, err := extractParams(responseURL)
	if err != nil {
		return nil, err
	}

	state := params.Get("state")
	v.mu.Lock()
	pending, ok := v.pending[state]
	if ok {
		delete(v.pending, state)
	}
	v.mu.Unlock()
	if !ok {
		return nil, newOAuth2Error(ErrInvalidRequest, "unknown or expired state")
	}
	if clockNow().Sub(pending.createdAt) > v.requestValidity {
		return nil, newOAuth2Error(ErrInvalidRequest, "request expired")
	}

	idTokenJws := params.Get("id_token")
	vpTokenJws := params.Get("vp_token")
	if idTokenJws == "" || vpTokenJws == "" {
		return nil, newOAuth2Error(ErrInvalidRequest, "missing id_token or vp_token")
	}

	idToken, err := v.verifyIdToken(idTokenJws, pending.nonce, expectedRelyingPartyURL)
	if err != nil {
		return nil, err
	}

	presentation := v.validator.VerifyVpJws(vpTokenJws, pending.nonce, v.crypto.Identifier())
	if !presentation.IsSuccess() {
		return nil, newOAuth2Error(ErrInvalidRequest, "vp_token verification failed")
	}

	return &AuthnResult{IdToken: *idToken, Presentation: presentation}, nil
}

func (v *OidcSiopVerifier) verifyIdToken(idTokenJws, expectedNonce, expectedRelyingPartyURL string) (*IdToken, error) {
	parsed, err := parseAndVerifyIdToken(idTokenJws)
	if err != nil {
		return nil, newOAuth2Error(ErrInvalidRequest, err.Error())
	}
	if parsed.Nonce != expectedNonce {
		return nil, newOAuth2Error(ErrInvalidRequest, "nonce mismatch")
	}
	if parsed.Audience != expectedRelyingPartyURL {
		return nil, newOAuth2Error(ErrInvalidRequest, "audience mismatch")
	}
	now := clockNow().Unix()
	if now < parsed.IssuedAt || now > parsed.ExpirationTime {
		return nil, newOAuth2Error(ErrInvalidRequest, "id_token outside iat/exp window")
	}
	return parsed, nil
}

// extractParams reads params from either the query string or the
// fragment of u, whichever is present, per spec.md §4.7's
// fragment/query response modes.
func extractParams(rawURL string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse response url: %w", err)
	}
	if u.Fragment != "" {
		return url.ParseQuery(u.Fragment)
	}
	if strings.Contains(rawURL, "?") {
		return u.Query(), nil
	}
	// direct_post/post bodies are handed to us pre-decoded as an
	// application/x-www-form-urlencoded string by the caller.
	return url.ParseQuery(rawURL)
}
