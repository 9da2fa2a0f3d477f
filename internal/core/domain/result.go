package domain

import "time"

// SignatureResult is the verified outcome of a completed transaction.
// It is populated only after every gate of response processing has passed.
type SignatureResult struct {
	// CorrelationID is the caller's transaction identifier.
	CorrelationID string `json:"correlationId"`

	// RequestID is the id of the SignRequest this result answers.
	RequestID string `json:"requestId"`

	// AuthnContextRef is the authentication context under which the signer
	// was authenticated. Always a member of the requested set or of the
	// policy's allow-list.
	AuthnContextRef string `json:"authnContextRef"`

	// AuthnServiceID is the service that authenticated the signer.
	AuthnServiceID string `json:"authnServiceId"`

	// AuthnInstant is when the signer was authenticated.
	AuthnInstant time.Time `json:"authnInstant"`

	// AssertionReference identifies the assertion the authentication is
	// based on.
	AssertionReference string `json:"assertionReference"`

	// Assertion is the raw assertion, included when requested and delivered.
	Assertion []byte `json:"assertion,omitempty"`

	// SignerAttributes are the identity attributes delivered for the signer.
	SignerAttributes []SignerAttribute `json:"signerAttributes"`

	// SignedDocuments holds one compiled document per input document.
	SignedDocuments []*SignedDocument `json:"signedDocuments"`

	// SignMessageDisplayed reports whether a display proof was delivered
	// for the sign message.
	SignMessageDisplayed bool `json:"signMessageDisplayed,omitempty"`
}

// Attribute returns the value of the named signer attribute, or "".
func (r *SignatureResult) Attribute(name string) string {
	for _, a := range r.SignerAttributes {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}
