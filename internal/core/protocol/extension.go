package protocol

import (
	"encoding/xml"
	"time"

	"github.com/crewjam/saml"
)

// SignRequestExtension is the eID framework extension of a SignRequest.
type SignRequestExtension struct {
	XMLName     xml.Name         `xml:"http://id.elegnamnden.se/csig/1.1/dss-ext/ns SignRequestExtension"`
	Version     string           `xml:"Version,attr,omitempty"`
	RequestTime time.Time        `xml:"RequestTime"`
	Conditions  *saml.Conditions `xml:"Conditions"`

	// Signer carries the identity attributes of the user that must sign.
	Signer *Signer `xml:"Signer"`

	// IdentityProvider is the service that authenticates the signer.
	IdentityProvider EntityID `xml:"IdentityProvider"`

	SignRequester EntityID `xml:"SignRequester"`
	SignService   EntityID `xml:"SignService"`

	RequestedSignatureAlgorithm string `xml:"RequestedSignatureAlgorithm"`

	SignMessage *SignMessage `xml:"SignMessage"`

	CertRequestProperties *CertRequestProperties `xml:"CertRequestProperties"`
}

// Signer wraps the SAML attribute statement naming the signer.
type Signer struct {
	AttributeStatement saml.AttributeStatement `xml:"AttributeStatement"`
}

// SignMessage is the message the signature service must display to the
// signer. The engine sends the message in clear; encryption to the
// authenticating service is performed by an external collaborator.
type SignMessage struct {
	XMLName       xml.Name   `xml:"http://id.elegnamnden.se/csig/1.1/dss-ext/ns SignMessage"`
	MustShow      bool       `xml:"MustShow,attr"`
	DisplayEntity string     `xml:"DisplayEntity,attr,omitempty"`
	MimeType      string     `xml:"MimeType,attr,omitempty"`
	Message       Base64Data `xml:"Message"`
}

// CertRequestProperties states the requested signing certificate and the
// acceptable authentication contexts for the signature operation.
type CertRequestProperties struct {
	CertType              string               `xml:"CertType,attr,omitempty"`
	AuthnContextClassRefs []string             `xml:"AuthnContextClassRef"`
	RequestedAttributes   []RequestedAttribute `xml:"RequestedCertAttributes>RequestedCertAttribute"`
}

// RequestedAttribute is one requested certificate attribute with its
// identity-attribute sources.
type RequestedAttribute struct {
	CertAttributeRef string   `xml:"CertAttributeRef,attr"`
	CertNameType     string   `xml:"CertNameType,attr,omitempty"`
	Required         bool     `xml:"Required,attr"`
	DefaultValue     string   `xml:"DefaultValue,attr,omitempty"`
	SamlAttributeNames []string `xml:"SamlAttributeName"`
}

// SignResponseExtension is the eID framework extension of a SignResponse.
type SignResponseExtension struct {
	XMLName      xml.Name  `xml:"http://id.elegnamnden.se/csig/1.1/dss-ext/ns SignResponseExtension"`
	Version      string    `xml:"Version,attr,omitempty"`
	ResponseTime time.Time `xml:"ResponseTime"`

	// Request echoes the original SignRequest message.
	Request Base64Data `xml:"Request,omitempty"`

	SignerAssertionInfo *SignerAssertionInfo `xml:"SignerAssertionInfo"`

	// SignatureCertificateChain holds the signing certificate followed by
	// its chain, each DER encoded.
	SignatureCertificateChain *CertificateChain `xml:"SignatureCertificateChain"`
}

// CertificateChain is a list of DER certificates.
type CertificateChain struct {
	Certificates []Base64Data `xml:"Certificate"`
}

// SignerAssertionInfo documents how the signer was authenticated.
type SignerAssertionInfo struct {
	ContextInfo        ContextInfo              `xml:"ContextInfo"`
	AttributeStatement *saml.AttributeStatement `xml:"AttributeStatement"`

	// SamlAssertions holds the raw assertions underlying the
	// authentication, each carried base64 encoded.
	SamlAssertions *SAMLAssertions `xml:"SamlAssertions"`
}

// SAMLAssertions is a list of raw assertion documents.
type SAMLAssertions struct {
	Assertions []Base64Data `xml:"Assertion"`
}

// ContextInfo is the authentication context block of SignerAssertionInfo.
type ContextInfo struct {
	// IdentityProvider is the service that authenticated the signer. Must
	// equal the one named in the request.
	IdentityProvider EntityID `xml:"IdentityProvider"`

	AuthenticationInstant time.Time `xml:"AuthenticationInstant"`
	AuthnContextClassRef  string    `xml:"AuthnContextClassRef"`
	ServiceID             string    `xml:"ServiceID,omitempty"`
	AuthType              string    `xml:"AuthType,omitempty"`

	// AssertionRef identifies which delivered assertion the authentication
	// is based on.
	AssertionRef string `xml:"AssertionRef,omitempty"`
}

// DeliveredAttributes flattens the attribute statement into name/value
// pairs, one pair per attribute value.
func (i *SignerAssertionInfo) DeliveredAttributes() map[string][]string {
	out := make(map[string][]string)
	if i == nil || i.AttributeStatement == nil {
		return out
	}
	for _, attr := range i.AttributeStatement.Attributes {
		for _, v := range attr.Values {
			out[attr.Name] = append(out[attr.Name], v.Value)
		}
	}
	return out
}
