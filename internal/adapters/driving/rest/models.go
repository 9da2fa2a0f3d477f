package rest

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

// ProcessRequest is the body of POST /v1/responses.
type ProcessRequest struct {
	// RelayState is the relay id posted back by the signature service.
	RelayState string `json:"relayState"`

	// SignResponse is the base64-encoded SignResponse message.
	SignResponse string `json:"eidSignResponse"`

	// State is the handle handed out when the request was created.
	State *domain.StateHandle `json:"state,omitempty"`

	// ReturnAssertion asks for the raw assertion in the result.
	ReturnAssertion bool `json:"returnAssertion,omitempty"`
}

// ProcessResponse is the body returned by POST /v1/responses. Exactly one
// of Result and Status is set: Status carries the terminal non-error
// outcomes (user cancel, provider error status), which are not HTTP errors.
type ProcessResponse struct {
	Result *domain.SignatureResult `json:"result,omitempty"`
	Status *SignatureStatus        `json:"status,omitempty"`
}

// Signature status outcomes.
const (
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// SignatureStatus describes a transaction that terminated without a
// signature.
type SignatureStatus struct {
	Outcome   string `json:"outcome"`
	RequestID string `json:"requestId,omitempty"`
	Major     string `json:"major,omitempty"`
	Minor     string `json:"minor,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PolicySummary is the discovery view of a policy. Trust anchors and
// encryption parameters are deliberately not exposed.
type PolicySummary struct {
	Name                   string `json:"name"`
	SignRequesterID        string `json:"signRequesterId,omitempty"`
	DefaultSignServiceID   string `json:"defaultSignServiceId,omitempty"`
	DefaultAuthnServiceID  string `json:"defaultAuthnServiceId,omitempty"`
	DefaultDestinationURL  string `json:"defaultDestinationUrl,omitempty"`
	DefaultAuthnContextRef string `json:"defaultAuthnContextRef,omitempty"`
	SignatureAlgorithm     string `json:"signatureAlgorithm"`
	StrictProcessing       bool   `json:"strictProcessing"`
	Stateless              bool   `json:"stateless"`
}

func policySummary(p *domain.PolicyConfiguration) PolicySummary {
	return PolicySummary{
		Name:                   p.Name,
		SignRequesterID:        p.SignRequesterID,
		DefaultSignServiceID:   p.DefaultSignServiceID,
		DefaultAuthnServiceID:  p.DefaultAuthnServiceID,
		DefaultDestinationURL:  p.DefaultDestinationURL,
		DefaultAuthnContextRef: p.DefaultAuthnContextRef,
		SignatureAlgorithm:     p.Algorithm(),
		StrictProcessing:       p.StrictProcessing,
		Stateless:              p.Stateless,
	}
}
