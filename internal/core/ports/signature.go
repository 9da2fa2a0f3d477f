package ports

import "crypto/x509"

// ResponseVerifier validates the XML signature on a SignResponse against
// the policy's trust anchors. This is a port interface - implementations
// are adapters.
//
// The verifier returns the validated bytes (not just an error) following
// goxmldsig practice, so that signature-wrapping tricks cannot smuggle
// unvalidated content past the check. Further processing must use the
// returned bytes.
type ResponseVerifier interface {
	// Verify validates the enveloped signature on the response document
	// and returns the validated XML bytes.
	Verify(data []byte, trustAnchors []*x509.Certificate) ([]byte, error)
}
