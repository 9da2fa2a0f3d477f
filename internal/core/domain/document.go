package domain

// TbsDocument is a to-be-signed document submitted by the caller.
// Content and ContentReference are mutually exclusive; a content reference
// is resolved through the external content cache and is forbidden when the
// policy is stateless.
type TbsDocument struct {
	// ID identifies the document within the transaction. Assigned by the
	// request builder when empty.
	ID string `json:"id,omitempty"`

	// MimeType selects the document processor ("application/xml",
	// "application/pdf", ...).
	MimeType string `json:"mimeType"`

	// Content is the inline document content.
	Content []byte `json:"content,omitempty"`

	// ContentReference is an opaque reference into the content cache.
	ContentReference string `json:"contentReference,omitempty"`

	// AdESRequirement requests an advanced electronic signature for this
	// document. Nil means a plain signature.
	AdESRequirement *AdESRequirement `json:"adesRequirement,omitempty"`

	// VisibleSignature requests a visible signature representation.
	// Carried to the document processor; rendering is format specific.
	VisibleSignature *VisibleSignatureRequirement `json:"visibleSignature,omitempty"`
}

// AdES signature formats.
const (
	AdESFormatNone = "None"
	AdESFormatBES  = "BES"
	AdESFormatEPES = "EPES"
)

// AdESRequirement describes a requested advanced electronic signature.
type AdESRequirement struct {
	// Format is one of the AdESFormat constants.
	Format string `json:"adesFormat"`

	// SignaturePolicy identifies the signature policy for EPES signatures.
	SignaturePolicy string `json:"signaturePolicy,omitempty"`
}

// VisibleSignatureRequirement describes where and how a visible signature
// should appear in the signed document.
type VisibleSignatureRequirement struct {
	TemplateID  string            `json:"templateId,omitempty"`
	Page        int               `json:"page,omitempty"`
	XPosition   int               `json:"xPosition,omitempty"`
	YPosition   int               `json:"yPosition,omitempty"`
	FieldValues map[string]string `json:"fieldValues,omitempty"`
}

// ResolvedDocument is a TbsDocument after pre-processing: content is fully
// materialized (references resolved) and format-specific preparation has
// been applied.
type ResolvedDocument struct {
	ID               string                       `json:"id"`
	MimeType         string                       `json:"mimeType"`
	Content          []byte                       `json:"content"`
	AdESRequirement  *AdESRequirement             `json:"adesRequirement,omitempty"`
	VisibleSignature *VisibleSignatureRequirement `json:"visibleSignature,omitempty"`
}

// SignedDocument is one compiled output document.
type SignedDocument struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
	Content  []byte `json:"content"`
}
