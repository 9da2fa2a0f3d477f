package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

// Re-export error model from domain
type (
	ErrorCode             = domain.ErrorCode
	IntegrationError      = domain.IntegrationError
	SigningCancelledError = domain.SigningCancelledError
	SigningErrorStatus    = domain.SigningErrorStatus
)

// Re-export error codes
const (
	ErrCodeValidation     = domain.ErrCodeValidation
	ErrCodePolicyNotFound = domain.ErrCodePolicyNotFound
	ErrCodeBadRequest     = domain.ErrCodeBadRequest
	ErrCodeState          = domain.ErrCodeState
	ErrCodeAccessDenied   = domain.ErrCodeAccessDenied
	ErrCodeProtocol       = domain.ErrCodeProtocol
	ErrCodeProcessing     = domain.ErrCodeProcessing
	ErrCodeInternal       = domain.ErrCodeInternal
)

// Re-export error constructors
var (
	ValidationError     = domain.ValidationError
	PolicyNotFoundError = domain.PolicyNotFoundError
	BadRequestError     = domain.BadRequestError
	StateError          = domain.StateError
	ProtocolError       = domain.ProtocolError
	ProcessingError     = domain.ProcessingError
	InternalError       = domain.InternalError
)
