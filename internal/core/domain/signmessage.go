package domain

// Sign-message MIME types understood by signature services.
const (
	SignMessageMimeText     = "text"
	SignMessageMimeHTML     = "text/html"
	SignMessageMimeMarkdown = "text/markdown"
)

// SignMessageParameters is the caller's request to have a message displayed
// to the signer before signing.
type SignMessageParameters struct {
	// Content is the message shown to the signer.
	Content []byte `json:"content"`

	// MustShow requires the signature service to display the message; the
	// response must then carry a display proof.
	MustShow bool `json:"mustShow"`

	// DisplayEntity is the entity id of the service that displays the
	// message. Defaults to the policy's authentication service.
	DisplayEntity string `json:"displayEntity,omitempty"`

	// MimeType is one of the SignMessageMime constants; defaults to text.
	MimeType string `json:"mimeType,omitempty"`

	// RequireEncryption overrides the policy's encryption requirement for
	// this message.
	RequireEncryption bool `json:"requireEncryption,omitempty"`
}
