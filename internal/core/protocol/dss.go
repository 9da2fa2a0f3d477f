// Package protocol mirrors the externally defined signature-request and
// signature-response wire format: an OASIS DSS 1.0 envelope with the
// extension slots of the Swedish eID framework DSS extension profile. The
// engine reads and writes these structures but does not redefine the schema.
package protocol

import (
	"encoding/base64"
	"encoding/xml"
	"strings"
)

// Schema namespaces and the profile identifier.
const (
	DSSNamespace       = "urn:oasis:names:tc:dss:1.0:core:schema"
	ExtensionNamespace = "http://id.elegnamnden.se/csig/1.1/dss-ext/ns"
	Profile            = "http://id.elegnamnden.se/csig/1.1/dss-ext/profile"
)

// DSS result major codes.
const (
	ResultMajorSuccess        = "urn:oasis:names:tc:dss:1.0:resultmajor:Success"
	ResultMajorRequesterError = "urn:oasis:names:tc:dss:1.0:resultmajor:RequesterError"
	ResultMajorResponderError = "urn:oasis:names:tc:dss:1.0:resultmajor:ResponderError"
)

// Result minor codes defined by the Swedish eID framework.
const (
	ResultMinorUserCancel       = "http://id.elegnamnden.se/sig-status/1.0/user-cancel"
	ResultMinorUnsupportedLoa   = "http://id.elegnamnden.se/sig-status/1.0/unsupported-loa"
	ResultMinorSigMessageError  = "http://id.elegnamnden.se/sig-status/1.0/sigmessage-error"
	ResultMinorAuthnFailed      = "http://id.elegnamnden.se/sig-status/1.0/authn-failed"
	ResultMinorRequestExpired   = "http://id.elegnamnden.se/sig-status/1.0/request-expired"
)

// Base64Data is binary element content carried base64-encoded on the wire.
type Base64Data []byte

// MarshalXML encodes the bytes as standard base64 element content.
func (b Base64Data) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(base64.StdEncoding.EncodeToString(b), start)
}

// UnmarshalXML decodes base64 element content, tolerating whitespace.
func (b *Base64Data) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// EntityID names a protocol entity, optionally qualified by a name format.
type EntityID struct {
	Format string `xml:"Format,attr,omitempty"`
	Value  string `xml:",chardata"`
}

// Result is the DSS result block of a SignResponse.
type Result struct {
	ResultMajor   string `xml:"ResultMajor"`
	ResultMinor   string `xml:"ResultMinor,omitempty"`
	ResultMessage string `xml:"ResultMessage,omitempty"`
}

// Success reports whether the result carries the success major code.
func (r Result) Success() bool {
	return r.ResultMajor == ResultMajorSuccess
}

// UserCancelled reports whether the result is the user-cancel status.
func (r Result) UserCancelled() bool {
	return r.ResultMinor == ResultMinorUserCancel
}

// SignRequest is the outgoing DSS envelope.
type SignRequest struct {
	XMLName        xml.Name       `xml:"urn:oasis:names:tc:dss:1.0:core:schema SignRequest"`
	Profile        string         `xml:"Profile,attr"`
	RequestID      string         `xml:"RequestID,attr"`
	OptionalInputs OptionalInputs `xml:"OptionalInputs"`
	InputDocuments InputDocuments `xml:"InputDocuments"`
}

// OptionalInputs carries the SignRequestExtension slot.
type OptionalInputs struct {
	SignRequestExtension *SignRequestExtension `xml:"SignRequestExtension"`
}

// InputDocuments carries the per-document payload container.
type InputDocuments struct {
	Other Other `xml:"Other"`
}

// Other is the DSS any-content wrapper holding the sign tasks.
type Other struct {
	SignTasks *SignTasks `xml:"SignTasks"`
}

// SignResponse is the returned DSS envelope.
type SignResponse struct {
	XMLName         xml.Name         `xml:"urn:oasis:names:tc:dss:1.0:core:schema SignResponse"`
	Profile         string           `xml:"Profile,attr"`
	RequestID       string           `xml:"RequestID,attr"`
	Result          Result           `xml:"Result"`
	OptionalOutputs *OptionalOutputs `xml:"OptionalOutputs"`
	SignatureObject *SignatureObject `xml:"SignatureObject"`
}

// OptionalOutputs carries the SignResponseExtension slot.
type OptionalOutputs struct {
	SignResponseExtension *SignResponseExtension `xml:"SignResponseExtension"`
}

// SignatureObject carries the signed per-document payloads.
type SignatureObject struct {
	Other Other `xml:"Other"`
}
