package domain

// SignerAttribute is one name/value attribute of the signer's identity.
type SignerAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AuthnRequirements states how the signer must be authenticated by the
// remote service.
type AuthnRequirements struct {
	// AuthnServiceID is the entity id of the authenticating service.
	// Defaults from the policy.
	AuthnServiceID string `json:"authnServiceId,omitempty"`

	// AuthnContextClassRefs is the set of acceptable authentication
	// contexts. Defaults from the policy when empty.
	AuthnContextClassRefs []string `json:"authnContextClassRefs,omitempty"`

	// SignerIdentityAttributes are the attributes identifying the user
	// that must sign (the relying application already knows who the signer
	// is). Sent to the signature service and echoed back for matching.
	SignerIdentityAttributes []SignerAttribute `json:"signerIdentityAttributes,omitempty"`
}

// CertAttributeMapping maps one attribute of the signing certificate to the
// identity attribute(s) it is sourced from.
type CertAttributeMapping struct {
	// Sources are the identity attribute names, in preference order, that
	// may supply the value.
	Sources []string `json:"sources"`

	// DestinationType is the certificate attribute type ("rdn", "san", "sda").
	DestinationType string `json:"destinationType"`

	// DestinationName is the certificate attribute reference (an OID for
	// rdn/sda).
	DestinationName string `json:"destinationName"`

	// Required marks the certificate attribute as mandatory. Under strict
	// processing, a required mapping without a default must be satisfied by
	// a delivered identity attribute.
	Required bool `json:"required"`

	// DefaultValue is used when no source attribute is delivered. Nil means
	// no default.
	DefaultValue *string `json:"defaultValue,omitempty"`
}

// CertificateRequirements states what signing certificate the signature
// service must issue.
type CertificateRequirements struct {
	// CertificateType is the requested certificate type; defaults from the
	// policy.
	CertificateType string `json:"certificateType,omitempty"`

	// AttributeMappings describe the certificate contents.
	AttributeMappings []CertAttributeMapping `json:"attributeMappings,omitempty"`
}

// SignRequestInput is the caller's input to request creation. Fields left
// empty are filled from the policy where a default exists.
type SignRequestInput struct {
	// CorrelationID is the caller's identifier for this transaction, used
	// in logs and the final result. Assigned when empty.
	CorrelationID string `json:"correlationId,omitempty"`

	// PolicyName selects the policy; empty resolves to the configured
	// default policy.
	PolicyName string `json:"policy,omitempty"`

	// SignRequesterID overrides the policy's requester identity.
	SignRequesterID string `json:"signRequesterId,omitempty"`

	// ReturnURL overrides the policy's default return URL.
	ReturnURL string `json:"returnUrl,omitempty"`

	// DestinationURL overrides the policy's default destination.
	DestinationURL string `json:"destinationUrl,omitempty"`

	// SignatureAlgorithm overrides the policy's default algorithm.
	SignatureAlgorithm string `json:"signatureAlgorithm,omitempty"`

	AuthnRequirements       AuthnRequirements       `json:"authnRequirements"`
	CertificateRequirements CertificateRequirements `json:"certificateRequirements"`

	// TbsDocuments are the documents to sign. At least one is required.
	TbsDocuments []*TbsDocument `json:"tbsDocuments"`

	// SignMessageParameters optionally requests a message display.
	SignMessageParameters *SignMessageParameters `json:"signMessageParameters,omitempty"`
}

// ResolvedInput is a SignRequestInput after validation and policy-default
// merging. Every policy-defaultable field is non-empty, every document has
// an id and its content materialized.
type ResolvedInput struct {
	CorrelationID           string                  `json:"correlationId"`
	PolicyName              string                  `json:"policy"`
	SignRequesterID         string                  `json:"signRequesterId"`
	ReturnURL               string                  `json:"returnUrl"`
	DestinationURL          string                  `json:"destinationUrl"`
	SignServiceID           string                  `json:"signServiceId"`
	SignatureAlgorithm      string                  `json:"signatureAlgorithm"`
	AuthnRequirements       AuthnRequirements       `json:"authnRequirements"`
	CertificateRequirements CertificateRequirements `json:"certificateRequirements"`
	Documents               []*ResolvedDocument     `json:"documents"`
	SignMessageParameters   *SignMessageParameters  `json:"signMessageParameters,omitempty"`
}
