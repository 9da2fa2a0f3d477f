package protocol

import "encoding/xml"

// Signature types carried in SignTaskData.
const (
	SigTypeXML = "XML"
	SigTypePDF = "PDF"
	SigTypeCMS = "CMS"
)

// SignTasks is the per-document payload container of a SignRequest or
// SignResponse.
type SignTasks struct {
	XMLName xml.Name       `xml:"http://id.elegnamnden.se/csig/1.1/dss-ext/ns SignTasks"`
	Tasks   []SignTaskData `xml:"SignTaskData"`
}

// Task returns the task with the given id, or nil.
func (t *SignTasks) Task(id string) *SignTaskData {
	if t == nil {
		return nil
	}
	for i := range t.Tasks {
		if t.Tasks[i].SignTaskID == id {
			return &t.Tasks[i]
		}
	}
	return nil
}

// SignTaskData is one per-document signing payload. In a request it carries
// the to-be-signed bytes; in a response additionally the signature produced
// by the signature service.
type SignTaskData struct {
	SignTaskID      string     `xml:"SignTaskId,attr"`
	SigType         string     `xml:"SigType,attr"`
	AdESType        string     `xml:"AdESType,attr,omitempty"`
	ProcessingRules string     `xml:"ProcessingRules,attr,omitempty"`
	ToBeSignedBytes Base64Data `xml:"ToBeSignedBytes"`

	AdESObject *AdESObject `xml:"AdESObject"`

	Base64Signature *Base64Signature `xml:"Base64Signature"`
}

// AdESObject is the advanced-signature object of a sign task. In responses
// it binds the signature to the certificate actually used through the
// certificate digest, which the engine verifies before trusting the result.
type AdESObject struct {
	SignatureID       string             `xml:"SignatureId,omitempty"`
	CertificateDigest *CertificateDigest `xml:"CertificateDigest"`
}

// CertificateDigest is a digest over the DER encoding of the signing
// certificate.
type CertificateDigest struct {
	Method string     `xml:"Method,attr"`
	Value  Base64Data `xml:"DigestValue"`
}

// Base64Signature carries the signature value produced by the signature
// service.
type Base64Signature struct {
	Type  string     `xml:"Type,attr,omitempty"`
	Value Base64Data `xml:"Value"`
}
