// Package signmessage builds the protocol SignMessage shown to the signer.
package signmessage

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// Builder assembles SignMessage elements, applying policy defaults for the
// display entity and MIME type. Encryption of sign messages is performed
// by an external service; when a policy or caller demands encryption the
// builder refuses rather than silently sending the message in clear.
type Builder struct{}

// NewBuilder creates a sign message builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the SignMessage element for the outgoing request.
func (b *Builder) Build(params *domain.SignMessageParameters, policy *domain.PolicyConfiguration) (*protocol.SignMessage, error) {
	if params == nil {
		return nil, nil
	}
	if len(params.Content) == 0 {
		return nil, domain.ValidationError("signMessageParameters.content", "sign message content is missing")
	}
	if params.RequireEncryption || policy.EncryptionParameters.Required {
		return nil, domain.InternalError(
			"the policy requires encrypted sign messages, which this service cannot produce", nil)
	}

	displayEntity := params.DisplayEntity
	if displayEntity == "" {
		displayEntity = policy.DefaultAuthnServiceID
	}
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = domain.SignMessageMimeText
	}

	return &protocol.SignMessage{
		MustShow:      params.MustShow,
		DisplayEntity: displayEntity,
		MimeType:      mimeType,
		Message:       params.Content,
	}, nil
}

// Ensure Builder implements ports.SignMessageBuilder
var _ ports.SignMessageBuilder = (*Builder)(nil)
