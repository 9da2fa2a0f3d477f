package document

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

const (
	pdfHeader    = "%PDF-"
	pdfEOFMarker = "%%EOF"

	// contentsWindowSize is the hex-character capacity reserved for the
	// CMS signature in the incremental update.
	contentsWindowSize = 16384
)

// contentsPrefix marks the reserved signature window appended by
// PreProcess. The window is located by searching for this marker, so the
// byte offsets never need to be carried in the session state.
const contentsPrefix = "/Type /Sig /Filter /Adobe.PPKLite /Contents <"

// PDFProcessor signs PDF documents. Pre-processing appends an incremental
// update with a reserved signature window; the to-be-signed payload is the
// digest over everything outside the window; compile writes the returned
// CMS signature into the window. Visible-signature requirements are
// carried but their rendering is an external concern.
type PDFProcessor struct{}

// NewPDFProcessor creates a PDF document processor.
func NewPDFProcessor() *PDFProcessor {
	return &PDFProcessor{}
}

// Supports reports whether the MIME type is the PDF type.
func (p *PDFProcessor) Supports(mimeType string) bool {
	return mimeType == "application/pdf"
}

// PreProcess materializes the content, checks the PDF framing and appends
// the signature placeholder.
func (p *PDFProcessor) PreProcess(ctx context.Context, doc *domain.TbsDocument, policy *domain.PolicyConfiguration, resolver ports.ContentCache, ownerID string) (*domain.ResolvedDocument, error) {
	content, err := materializeContent(ctx, doc, policy, resolver, ownerID)
	if err != nil {
		return nil, err
	}

	field := fmt.Sprintf("tbsDocuments[%s].content", doc.ID)
	if !bytes.HasPrefix(content, []byte(pdfHeader)) {
		return nil, domain.ValidationError(field, "document is not a PDF (missing %PDF- header)")
	}
	if !bytes.Contains(content, []byte(pdfEOFMarker)) {
		return nil, domain.ValidationError(field, "document is not a complete PDF (missing %%EOF)")
	}
	if bytes.Contains(content, []byte(contentsPrefix)) {
		return nil, domain.ValidationError(field, "document already carries a signature placeholder")
	}

	var buf bytes.Buffer
	buf.Write(content)
	if content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("<< ")
	buf.WriteString(contentsPrefix)
	buf.Write(bytes.Repeat([]byte{'0'}, contentsWindowSize))
	buf.WriteString("> >>\n")
	buf.WriteString(pdfEOFMarker)
	buf.WriteByte('\n')

	return &domain.ResolvedDocument{
		ID:               doc.ID,
		MimeType:         doc.MimeType,
		Content:          buf.Bytes(),
		AdESRequirement:  doc.AdESRequirement,
		VisibleSignature: doc.VisibleSignature,
	}, nil
}

// contentsWindow locates the reserved signature window in prepared
// content, returning the index range of the hex characters.
func contentsWindow(content []byte) (start, end int, err error) {
	idx := bytes.Index(content, []byte(contentsPrefix))
	if idx < 0 {
		return 0, 0, fmt.Errorf("no signature placeholder in prepared PDF")
	}
	start = idx + len(contentsPrefix)
	end = start + contentsWindowSize
	if end >= len(content) || content[end] != '>' {
		return 0, 0, fmt.Errorf("truncated signature placeholder in prepared PDF")
	}
	return start, end, nil
}

// ToBeSigned digests the byte ranges around the signature window.
func (p *PDFProcessor) ToBeSigned(doc *domain.ResolvedDocument, signatureAlgorithm string, policy *domain.PolicyConfiguration) (*protocol.SignTaskData, error) {
	hash, ok := protocol.HashForSignatureURI(signatureAlgorithm)
	if !ok {
		return nil, domain.ValidationError("signatureAlgorithm",
			fmt.Sprintf("unsupported signature algorithm %q", signatureAlgorithm))
	}
	start, end, err := contentsWindow(doc.Content)
	if err != nil {
		return nil, domain.InternalError("locate signature window", err)
	}

	hasher := hash.New()
	hasher.Write(doc.Content[:start])
	hasher.Write(doc.Content[end:])

	task := &protocol.SignTaskData{
		SignTaskID:      doc.ID,
		SigType:         protocol.SigTypePDF,
		ToBeSignedBytes: hasher.Sum(nil),
	}
	if doc.AdESRequirement != nil {
		task.AdESType = doc.AdESRequirement.Format
	}
	return task, nil
}

// ValidateSignedTask checks the returned task against the document and its
// AdES requirement.
func (p *PDFProcessor) ValidateSignedTask(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate, strict bool) error {
	if task.SigType != protocol.SigTypePDF {
		return domain.ProcessingError(domain.DetailInvalidResponse,
			fmt.Sprintf("sign task %q has signature type %q, expected PDF", task.SignTaskID, task.SigType))
	}
	if task.Base64Signature == nil || len(task.Base64Signature.Value) == 0 {
		return domain.ProtocolError(
			fmt.Sprintf("sign task %q carries no signature", task.SignTaskID), nil)
	}
	if hex.EncodedLen(len(task.Base64Signature.Value)) > contentsWindowSize {
		return domain.ProcessingError(domain.DetailInvalidResponse,
			fmt.Sprintf("sign task %q signature exceeds the reserved window", task.SignTaskID))
	}
	return validateAdESClaim(doc, task, chain, strict)
}

// Compile writes the returned CMS signature into the reserved window.
func (p *PDFProcessor) Compile(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate) (*domain.SignedDocument, error) {
	start, end, err := contentsWindow(doc.Content)
	if err != nil {
		return nil, domain.InternalError("locate signature window", err)
	}

	encoded := make([]byte, hex.EncodedLen(len(task.Base64Signature.Value)))
	hex.Encode(encoded, task.Base64Signature.Value)
	if len(encoded) > end-start {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			fmt.Sprintf("sign task %q signature exceeds the reserved window", task.SignTaskID))
	}

	out := make([]byte, len(doc.Content))
	copy(out, doc.Content)
	copy(out[start:], encoded)

	return &domain.SignedDocument{
		ID:       doc.ID,
		MimeType: doc.MimeType,
		Content:  out,
	}, nil
}

// Ensure PDFProcessor implements ports.DocumentProcessor
var _ ports.DocumentProcessor = (*PDFProcessor)(nil)
