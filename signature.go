package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/signature"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Re-export ResponseVerifier interface from ports
type ResponseVerifier = ports.ResponseVerifier

// Re-export signature verification adapters
type (
	XMLDsigResponseVerifier = signature.XMLDsigResponseVerifier
	NoopResponseVerifier    = signature.NoopResponseVerifier
)

var (
	NewXMLDsigResponseVerifier           = signature.NewXMLDsigResponseVerifier
	NewXMLDsigResponseVerifierWithLogger = signature.NewXMLDsigResponseVerifierWithLogger
	NewNoopResponseVerifier              = signature.NewNoopResponseVerifier
)
