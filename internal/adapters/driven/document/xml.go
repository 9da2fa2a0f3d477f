package document

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

const (
	dsigNamespace         = "http://www.w3.org/2000/09/xmldsig#"
	excC14NAlgorithm      = "http://www.w3.org/2001/10/xml-exc-c14n#"
	envelopedSigAlgorithm = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)

// XMLProcessor signs XML documents with enveloped signatures. The
// to-be-signed payload is a ds:SignedInfo over a digest of the document;
// compile attaches the completed ds:Signature to the document root.
type XMLProcessor struct{}

// NewXMLProcessor creates an XML document processor.
func NewXMLProcessor() *XMLProcessor {
	return &XMLProcessor{}
}

// Supports reports whether the MIME type is an XML type.
func (p *XMLProcessor) Supports(mimeType string) bool {
	return mimeType == "application/xml" || mimeType == "text/xml"
}

// PreProcess materializes the document content and rejects XML that does
// not parse.
func (p *XMLProcessor) PreProcess(ctx context.Context, doc *domain.TbsDocument, policy *domain.PolicyConfiguration, resolver ports.ContentCache, ownerID string) (*domain.ResolvedDocument, error) {
	content, err := materializeContent(ctx, doc, policy, resolver, ownerID)
	if err != nil {
		return nil, err
	}

	parsed := etree.NewDocument()
	if err := parsed.ReadFromBytes(content); err != nil {
		return nil, domain.ValidationError(
			fmt.Sprintf("tbsDocuments[%s].content", doc.ID), "document is not well-formed XML")
	}
	if parsed.Root() == nil {
		return nil, domain.ValidationError(
			fmt.Sprintf("tbsDocuments[%s].content", doc.ID), "document has no root element")
	}

	// Re-serialize so the bytes digested at build time are exactly the
	// bytes compiled into the signed document.
	normalized, err := parsed.WriteToBytes()
	if err != nil {
		return nil, domain.InternalError("serialize XML document", err)
	}

	return &domain.ResolvedDocument{
		ID:               doc.ID,
		MimeType:         doc.MimeType,
		Content:          normalized,
		AdESRequirement:  doc.AdESRequirement,
		VisibleSignature: doc.VisibleSignature,
	}, nil
}

// ToBeSigned computes the ds:SignedInfo payload for the document.
func (p *XMLProcessor) ToBeSigned(doc *domain.ResolvedDocument, signatureAlgorithm string, policy *domain.PolicyConfiguration) (*protocol.SignTaskData, error) {
	hash, ok := protocol.HashForSignatureURI(signatureAlgorithm)
	if !ok {
		return nil, domain.ValidationError("signatureAlgorithm",
			fmt.Sprintf("unsupported signature algorithm %q", signatureAlgorithm))
	}
	digestURI, _ := protocol.DigestURIForSignatureURI(signatureAlgorithm)

	hasher := hash.New()
	hasher.Write(doc.Content)
	digest := hasher.Sum(nil)

	signedInfo := buildSignedInfo(signatureAlgorithm, digestURI, digest)
	signedInfoDoc := etree.NewDocument()
	signedInfoDoc.SetRoot(signedInfo)
	tbs, err := signedInfoDoc.WriteToBytes()
	if err != nil {
		return nil, domain.InternalError("serialize SignedInfo", err)
	}

	task := &protocol.SignTaskData{
		SignTaskID:      doc.ID,
		SigType:         protocol.SigTypeXML,
		ToBeSignedBytes: tbs,
	}
	if doc.AdESRequirement != nil {
		task.AdESType = doc.AdESRequirement.Format
	}
	return task, nil
}

func buildSignedInfo(signatureAlgorithm, digestURI string, digest []byte) *etree.Element {
	signedInfo := etree.NewElement("ds:SignedInfo")
	signedInfo.CreateAttr("xmlns:ds", dsigNamespace)

	c14n := signedInfo.CreateElement("ds:CanonicalizationMethod")
	c14n.CreateAttr("Algorithm", excC14NAlgorithm)

	sigMethod := signedInfo.CreateElement("ds:SignatureMethod")
	sigMethod.CreateAttr("Algorithm", signatureAlgorithm)

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")

	transforms := ref.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", envelopedSigAlgorithm)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", excC14NAlgorithm)

	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", digestURI)
	ref.CreateElement("ds:DigestValue").SetText(base64.StdEncoding.EncodeToString(digest))

	return signedInfo
}

// ValidateSignedTask checks the returned task against the document and its
// AdES requirement.
func (p *XMLProcessor) ValidateSignedTask(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate, strict bool) error {
	if task.SigType != protocol.SigTypeXML {
		return domain.ProcessingError(domain.DetailInvalidResponse,
			fmt.Sprintf("sign task %q has signature type %q, expected XML", task.SignTaskID, task.SigType))
	}
	if task.Base64Signature == nil || len(task.Base64Signature.Value) == 0 {
		return domain.ProtocolError(
			fmt.Sprintf("sign task %q carries no signature", task.SignTaskID), nil)
	}
	return validateAdESClaim(doc, task, chain, strict)
}

// validateAdESClaim checks the certificate-digest claim of an advanced
// signature. Shared by the XML and PDF processors.
func validateAdESClaim(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate, strict bool) error {
	if doc.AdESRequirement == nil || doc.AdESRequirement.Format == domain.AdESFormatNone {
		return nil
	}
	claim := task.AdESObject
	if claim == nil || claim.CertificateDigest == nil {
		if strict {
			return domain.ProcessingError(domain.DetailAdESValidation,
				fmt.Sprintf("sign task %q is missing the required AdES object", task.SignTaskID))
		}
		return nil
	}
	if len(chain) == 0 {
		return domain.ProtocolError("response carries no signing certificate", nil)
	}
	return verifyCertificateDigest(claim.CertificateDigest, chain[0])
}

// Compile builds the signed XML document: the original document with the
// completed ds:Signature attached to its root.
func (p *XMLProcessor) Compile(doc *domain.ResolvedDocument, task *protocol.SignTaskData, chain []*x509.Certificate) (*domain.SignedDocument, error) {
	original := etree.NewDocument()
	if err := original.ReadFromBytes(doc.Content); err != nil {
		return nil, domain.InternalError("re-parse original XML document", err)
	}
	root := original.Root()
	if root == nil {
		return nil, domain.InternalError("original XML document has no root element", nil)
	}

	signedInfoDoc := etree.NewDocument()
	if err := signedInfoDoc.ReadFromBytes(task.ToBeSignedBytes); err != nil {
		return nil, domain.ProtocolError(
			fmt.Sprintf("sign task %q carries malformed SignedInfo", task.SignTaskID), err)
	}
	signedInfo := signedInfoDoc.Root()
	if signedInfo == nil {
		return nil, domain.ProtocolError(
			fmt.Sprintf("sign task %q carries empty SignedInfo", task.SignTaskID), nil)
	}

	signature := etree.NewElement("ds:Signature")
	signature.CreateAttr("xmlns:ds", dsigNamespace)
	if task.AdESObject != nil && task.AdESObject.SignatureID != "" {
		signature.CreateAttr("Id", task.AdESObject.SignatureID)
	}
	signature.AddChild(signedInfo.Copy())

	sigValue := signature.CreateElement("ds:SignatureValue")
	sigValue.SetText(base64.StdEncoding.EncodeToString(task.Base64Signature.Value))

	keyInfo := signature.CreateElement("ds:KeyInfo")
	x509Data := keyInfo.CreateElement("ds:X509Data")
	for _, cert := range chain {
		x509Data.CreateElement("ds:X509Certificate").
			SetText(base64.StdEncoding.EncodeToString(cert.Raw))
	}

	root.AddChild(signature)
	out, err := original.WriteToBytes()
	if err != nil {
		return nil, domain.InternalError("serialize signed XML document", err)
	}

	return &domain.SignedDocument{
		ID:       doc.ID,
		MimeType: doc.MimeType,
		Content:  out,
	}, nil
}

// Ensure XMLProcessor implements ports.DocumentProcessor
var _ ports.DocumentProcessor = (*XMLProcessor)(nil)
