package signature

import (
	"crypto/x509"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// NoopResponseVerifier is a pass-through verifier for development/testing.
// It returns the input unchanged without verification.
type NoopResponseVerifier struct{}

// NewNoopResponseVerifier creates a new NoopResponseVerifier.
func NewNoopResponseVerifier() *NoopResponseVerifier {
	return &NoopResponseVerifier{}
}

// Verify returns the input unchanged without verification.
func (v *NoopResponseVerifier) Verify(data []byte, trustAnchors []*x509.Certificate) ([]byte, error) {
	return data, nil
}

// Ensure NoopResponseVerifier implements ports.ResponseVerifier
var _ ports.ResponseVerifier = (*NoopResponseVerifier)(nil)
