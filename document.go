package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/document"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Re-export document types from domain
type (
	TbsDocument                 = domain.TbsDocument
	ResolvedDocument            = domain.ResolvedDocument
	SignedDocument              = domain.SignedDocument
	AdESRequirement             = domain.AdESRequirement
	VisibleSignatureRequirement = domain.VisibleSignatureRequirement
	SignRequestInput            = domain.SignRequestInput
	ResolvedInput               = domain.ResolvedInput
	AuthnRequirements           = domain.AuthnRequirements
	CertificateRequirements     = domain.CertificateRequirements
	CertAttributeMapping        = domain.CertAttributeMapping
	SignerAttribute             = domain.SignerAttribute
	SignMessageParameters       = domain.SignMessageParameters
	SessionState                = domain.SessionState
	StateHandle                 = domain.StateHandle
	SignatureResult             = domain.SignatureResult
)

// Re-export DocumentProcessor interface from ports
type DocumentProcessor = ports.DocumentProcessor

// Re-export document processor adapters
type (
	DocumentRegistry = document.Registry
	XMLProcessor     = document.XMLProcessor
	PDFProcessor     = document.PDFProcessor
)

var (
	NewDocumentRegistry     = document.NewRegistry
	DefaultDocumentRegistry = document.DefaultRegistry
	NewXMLProcessor         = document.NewXMLProcessor
	NewPDFProcessor         = document.NewPDFProcessor
)
