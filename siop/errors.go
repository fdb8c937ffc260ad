package siop

// ErrorCode is one of spec.md §4.7's typed SIOP failure codes.
type ErrorCode string

const (
	ErrInvalidRequest                  ErrorCode = "invalid_request"
	ErrUserCancelled                   ErrorCode = "user_cancelled"
	ErrRegistrationValueNotSupported   ErrorCode = "registration_value_not_supported"
	ErrSubjectSyntaxTypesNotSupported  ErrorCode = "subject_syntax_types_not_supported"
)

// OAuth2Exception is the exceptional-error side of spec.md §7's two
// error styles, raised only at the SIOP boundary.
type OAuth2Exception struct {
	Code        ErrorCode
	Description string
}

func (e *OAuth2Exception) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

func newOAuth2Error(code ErrorCode, description string) *OAuth2Exception {
	return &OAuth2Exception{Code: code, Description: description}
}
