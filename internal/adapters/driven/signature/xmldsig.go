// Package signature provides ResponseVerifier adapters for validating the
// XML signature on SignResponse messages.
package signature

import (
	"crypto/x509"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// XMLDsigResponseVerifier validates enveloped XML signatures on
// SignResponse messages using goxmldsig, against the trust anchors of the
// policy that built the request.
type XMLDsigResponseVerifier struct {
	logger *zap.Logger
}

// NewXMLDsigResponseVerifier creates a verifier.
func NewXMLDsigResponseVerifier() *XMLDsigResponseVerifier {
	return &XMLDsigResponseVerifier{}
}

// NewXMLDsigResponseVerifierWithLogger creates a verifier that logs
// verification events.
func NewXMLDsigResponseVerifierWithLogger(logger *zap.Logger) *XMLDsigResponseVerifier {
	return &XMLDsigResponseVerifier{logger: logger}
}

// Verify validates the enveloped signature on the response document and
// returns the validated XML bytes. The validated element is re-serialized
// so that signature-wrapping tricks cannot smuggle unvalidated content
// past the check.
func (v *XMLDsigResponseVerifier) Verify(data []byte, trustAnchors []*x509.Certificate) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.ProtocolError("response is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, domain.ProtocolError("response is an empty XML document", nil)
	}

	certStore := &dsig.MemoryX509CertificateStore{Roots: trustAnchors}
	ctx := dsig.NewDefaultValidationContext(certStore)

	validated, err := ctx.Validate(root)
	if err != nil {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the signature on the sign response did not validate")
	}

	if v.logger != nil {
		v.logger.Debug("sign response signature verified",
			zap.Int("trust_anchors", len(trustAnchors)))
	}

	validatedDoc := etree.NewDocument()
	validatedDoc.SetRoot(validated)
	result, err := validatedDoc.WriteToBytes()
	if err != nil {
		return nil, domain.InternalError("serialize validated response", err)
	}
	return result, nil
}

// Ensure XMLDsigResponseVerifier implements ports.ResponseVerifier
var _ ports.ResponseVerifier = (*XMLDsigResponseVerifier)(nil)
