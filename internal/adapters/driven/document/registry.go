// Package document provides the per-format DocumentProcessor adapters and
// their registry. Processors are selected through the Supports predicate;
// nothing in the engine dispatches on concrete document types.
package document

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// Registry holds document processors and dispatches by MIME type.
type Registry struct {
	processors []ports.DocumentProcessor
}

// NewRegistry creates a registry with the given processors, consulted in
// order.
func NewRegistry(processors ...ports.DocumentProcessor) *Registry {
	return &Registry{processors: processors}
}

// DefaultRegistry returns a registry with the XML and PDF processors.
func DefaultRegistry() *Registry {
	return NewRegistry(NewXMLProcessor(), NewPDFProcessor())
}

// ForMimeType returns the first processor supporting the MIME type.
func (r *Registry) ForMimeType(mimeType string) (ports.DocumentProcessor, bool) {
	for _, p := range r.processors {
		if p.Supports(mimeType) {
			return p, true
		}
	}
	return nil, false
}

// Processors returns the registered processors.
func (r *Registry) Processors() []ports.DocumentProcessor {
	return r.processors
}

// materializeContent applies the content/content-reference rules shared by
// all processors: the two are mutually exclusive, a reference requires a
// content cache and a non-stateless policy, and resolution failures are
// validation errors, never silently skipped.
func materializeContent(ctx context.Context, doc *domain.TbsDocument, policy *domain.PolicyConfiguration, resolver ports.ContentCache, ownerID string) ([]byte, error) {
	field := fmt.Sprintf("tbsDocuments[%s]", doc.ID)
	hasContent := len(doc.Content) > 0
	hasRef := doc.ContentReference != ""

	switch {
	case hasContent && hasRef:
		return nil, domain.ValidationError(field, "content and contentReference are mutually exclusive")
	case !hasContent && !hasRef:
		return nil, domain.ValidationError(field+".content", "document content is missing")
	case hasContent:
		return doc.Content, nil
	}

	if policy.Stateless {
		return nil, domain.ValidationError(field+".contentReference",
			"content references are not allowed under a stateless policy")
	}
	if resolver == nil {
		return nil, domain.ValidationError(field+".contentReference",
			"no content cache is configured")
	}
	content, err := resolver.Get(ctx, doc.ContentReference, ownerID)
	if err != nil {
		if errors.Is(err, ports.ErrContentNotFound) || errors.Is(err, ports.ErrContentAccessDenied) {
			return nil, domain.ValidationError(field+".contentReference",
				"the content reference could not be resolved")
		}
		return nil, domain.InternalError("content cache lookup failed", err)
	}
	return content, nil
}

// verifyCertificateDigest checks an advanced-signature certificate-digest
// claim against the certificate actually used.
func verifyCertificateDigest(claim *protocol.CertificateDigest, cert *x509.Certificate) error {
	h, ok := protocol.HashForDigestURI(claim.Method)
	if !ok {
		return domain.InternalError(
			fmt.Sprintf("unsupported certificate digest algorithm %q", claim.Method), nil)
	}
	hasher := h.New()
	hasher.Write(cert.Raw)
	if !bytes.Equal(hasher.Sum(nil), claim.Value) {
		return domain.ProcessingError(domain.DetailAdESValidation,
			"AdES certificate digest does not match the signing certificate")
	}
	return nil
}
