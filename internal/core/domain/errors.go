package domain

import (
	"fmt"
	"net/http"
)

// ErrorCode categorizes integration errors. Codes are stable and intended
// for programmatic handling and for mapping to HTTP statuses in the REST
// adapter.
type ErrorCode string

const (
	ErrCodeValidation     ErrorCode = "validation-error"
	ErrCodePolicyNotFound ErrorCode = "policy-not-found"
	ErrCodeBadRequest     ErrorCode = "bad-request"
	ErrCodeState          ErrorCode = "state-error"
	ErrCodeAccessDenied   ErrorCode = "access-denied"
	ErrCodeProtocol       ErrorCode = "protocol-error"
	ErrCodeProcessing     ErrorCode = "processing-error"
	ErrCodeInternal       ErrorCode = "internal-error"
)

// Detail codes refine an ErrorCode without changing its category.
const (
	DetailMissingInputState   = "missing-input-state"
	DetailStateNotFound       = "state-not-found"
	DetailFormatError         = "format-error"
	DetailPolicyError         = "policy-error"
	DetailInvalidResponse     = "invalid-response"
	DetailInvalidAuthnContext = "invalid-authncontext"
	DetailAdESValidation      = "ades-validation-error"
	DetailSignMessage         = "signmessage-error"
	DetailAttributeMismatch   = "attribute-mismatch"
)

// stateNotFoundMessage is the caller-visible message for both a genuinely
// missing state and an ownership mismatch. The two cases must be
// indistinguishable to callers so that state ids cannot be probed for
// other owners' transactions; the distinction is made in logs only.
const stateNotFoundMessage = "No signature state found for the given id"

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// HTTPStatus returns the HTTP status code for this error code.
// Access-denied deliberately maps to the same status as a missing state.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeState, ErrCodeAccessDenied, ErrCodeProtocol, ErrCodeProcessing:
		return http.StatusBadRequest
	case ErrCodePolicyNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IntegrationError is a structured error with a category code, an optional
// detail code, and an optional cause.
type IntegrationError struct {
	Code       ErrorCode
	DetailCode string
	Message    string
	FieldName  string // set for validation errors that point at an input field
	Cause      error
}

// Error implements the error interface.
func (e *IntegrationError) Error() string {
	if e.FieldName != "" {
		return fmt.Sprintf("%s: %s", e.FieldName, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *IntegrationError) Unwrap() error {
	return e.Cause
}

// ValidationError reports defective caller input. The field name uses
// input paths such as "tbsDocuments[1].mimeType".
func ValidationError(fieldName, message string) *IntegrationError {
	return &IntegrationError{Code: ErrCodeValidation, Message: message, FieldName: fieldName}
}

// PolicyNotFoundError reports that no policy with the given name is configured.
func PolicyNotFoundError(name string) *IntegrationError {
	return &IntegrationError{
		Code:    ErrCodePolicyNotFound,
		Message: fmt.Sprintf("The policy %q is not configured", name),
	}
}

// BadRequestError reports a binding mismatch between a response and the
// session state it claims to answer.
func BadRequestError(message string) *IntegrationError {
	return &IntegrationError{Code: ErrCodeBadRequest, Message: message}
}

// StateError reports a missing, expired, malformed or misused state handle.
func StateError(detailCode, message string) *IntegrationError {
	return &IntegrationError{Code: ErrCodeState, DetailCode: detailCode, Message: message}
}

// StateNotFoundError reports that no state exists for an id. The message is
// shared with AccessDeniedError on purpose.
func StateNotFoundError() *IntegrationError {
	return &IntegrationError{Code: ErrCodeState, DetailCode: DetailStateNotFound, Message: stateNotFoundMessage}
}

// AccessDeniedError reports an ownership mismatch on a state lookup. The
// caller-visible message is identical to StateNotFoundError.
func AccessDeniedError() *IntegrationError {
	return &IntegrationError{Code: ErrCodeAccessDenied, DetailCode: DetailStateNotFound, Message: stateNotFoundMessage}
}

// ProtocolError reports a malformed or incomplete wire message.
func ProtocolError(message string, cause error) *IntegrationError {
	return &IntegrationError{Code: ErrCodeProtocol, Message: message, Cause: cause}
}

// ProcessingError reports a response that failed a security or consistency
// check.
func ProcessingError(detailCode, message string) *IntegrationError {
	return &IntegrationError{Code: ErrCodeProcessing, DetailCode: detailCode, Message: message}
}

// InternalError reports a server-side fault. The cause is logged in full
// but surfaced generically.
func InternalError(message string, cause error) *IntegrationError {
	return &IntegrationError{Code: ErrCodeInternal, Message: message, Cause: cause}
}

// SigningCancelledError is the terminal, non-error signal raised when the
// user declined to sign at the signature service.
type SigningCancelledError struct {
	RequestID string
}

// Error implements the error interface.
func (e *SigningCancelledError) Error() string {
	return fmt.Sprintf("signing of request %q was cancelled by the user", e.RequestID)
}

// SigningErrorStatus is the terminal signal raised when the signature
// service reported an error status. Major and Minor carry the provider's
// result codes verbatim.
type SigningErrorStatus struct {
	RequestID string
	Major     string
	Minor     string
	Message   string
}

// Error implements the error interface.
func (e *SigningErrorStatus) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("signature service reported an error for request %q: %s (%s)", e.RequestID, e.Message, e.Major)
	}
	return fmt.Sprintf("signature service reported an error for request %q: %s", e.RequestID, e.Major)
}

// JSONErrorResponse is the standard JSON error format for API endpoints.
type JSONErrorResponse struct {
	Error JSONErrorDetail `json:"error"`
}

// JSONErrorDetail contains error details.
type JSONErrorDetail struct {
	Code       string `json:"code"`
	DetailCode string `json:"detailCode,omitempty"`
	Message    string `json:"message"`
	FieldName  string `json:"fieldName,omitempty"`
}

// NewJSONErrorResponse creates a JSON error response from an IntegrationError.
func NewJSONErrorResponse(err *IntegrationError) JSONErrorResponse {
	detail := JSONErrorDetail{
		Code:       err.Code.String(),
		DetailCode: err.DetailCode,
		Message:    err.Message,
		FieldName:  err.FieldName,
	}
	// Ownership mismatches must render exactly like a missing state.
	if err.Code == ErrCodeAccessDenied {
		detail.Code = ErrCodeState.String()
	}
	return JSONErrorResponse{Error: detail}
}
