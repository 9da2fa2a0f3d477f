package ports

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// SignMessageBuilder builds the protocol sign message from caller
// parameters and policy defaults.
type SignMessageBuilder interface {
	// Build produces the SignMessage element for the outgoing request.
	// Returns an error when the policy's requirements (for example
	// mandatory encryption) cannot be satisfied.
	Build(params *domain.SignMessageParameters, policy *domain.PolicyConfiguration) (*protocol.SignMessage, error)
}
