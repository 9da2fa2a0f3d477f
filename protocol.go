package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// Re-export wire protocol types
type (
	SignRequest          = protocol.SignRequest
	SignResponse         = protocol.SignResponse
	SignRequestEnvelope  = protocol.SignRequestEnvelope
	SignResponseEnvelope = protocol.SignResponseEnvelope
	SignTasks            = protocol.SignTasks
	SignTaskData         = protocol.SignTaskData
	SignMessage          = protocol.SignMessage
)

// Re-export envelope constructors
var (
	NewSignRequestEnvelope     = protocol.NewSignRequestEnvelope
	ParseSignRequestEnvelope   = protocol.ParseSignRequestEnvelope
	DecodeSignRequestEnvelope  = protocol.DecodeSignRequestEnvelope
	NewSignResponseEnvelope    = protocol.NewSignResponseEnvelope
	ParseSignResponseEnvelope  = protocol.ParseSignResponseEnvelope
	DecodeSignResponseEnvelope = protocol.DecodeSignResponseEnvelope
)
