package ports

import (
	"context"
	"crypto/x509"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// DocumentProcessor is the per-format document plugin. Implementations are
// adapters, selected through the Supports predicate; the engine never
// dispatches on concrete types.
type DocumentProcessor interface {
	// Supports reports whether the processor handles the MIME type.
	Supports(mimeType string) bool

	// PreProcess validates the document, materializes its content
	// (resolving a content reference through the resolver, scoped to the
	// owner) and applies format-specific preparation.
	PreProcess(ctx context.Context, doc *domain.TbsDocument, policy *domain.PolicyConfiguration, resolver ContentCache, ownerID string) (*domain.ResolvedDocument, error)

	// ToBeSigned computes the to-be-signed payload for the document under
	// the given signature algorithm URI.
	ToBeSigned(doc *domain.ResolvedDocument, signatureAlgorithm string, policy *domain.PolicyConfiguration) (*protocol.SignTaskData, error)

	// ValidateSignedTask checks the returned sign task against the
	// document, including any advanced-signature certificate-digest claim
	// against the certificate actually used.
	ValidateSignedTask(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate, strict bool) error

	// Compile builds the final signed document from the returned task.
	Compile(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate) (*domain.SignedDocument, error)
}
