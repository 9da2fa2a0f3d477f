package domain

import "time"

// SessionState carries a transaction across the browser redirect to the
// signature service and back. It is either held server-side in the state
// cache (keyed by the request id) or handed to the caller in encoded form.
type SessionState struct {
	// CorrelationID is the caller's transaction identifier.
	CorrelationID string `json:"correlationId"`

	// PolicyName names the policy the request was built under.
	PolicyName string `json:"policy"`

	// OwnerID scopes the state to the caller that created it.
	OwnerID string `json:"ownerId,omitempty"`

	// RequestID is the generated id of the outgoing SignRequest. The
	// response's relay id must match it exactly.
	RequestID string `json:"requestId"`

	// RequestTime is when the request was built; the lower bound of the
	// authentication freshness window.
	RequestTime time.Time `json:"requestTime"`

	// ExpectedReturnURL is where the response is expected to arrive.
	ExpectedReturnURL string `json:"expectedReturnUrl"`

	// AuthnServiceID is the authenticating service the request named; the
	// response must name the same one.
	AuthnServiceID string `json:"authnServiceId"`

	// AuthnContextClassRefs is the requested authentication context set.
	AuthnContextClassRefs []string `json:"authnContextClassRefs,omitempty"`

	// CertificateRequirements are kept for strict attribute checking.
	CertificateRequirements CertificateRequirements `json:"certificateRequirements"`

	// Documents are the pre-processed input documents, needed to compile
	// the signed output.
	Documents []*ResolvedDocument `json:"documents"`

	// SignMessage are the sign-message parameters, when a message was sent.
	SignMessage *SignMessageParameters `json:"signMessage,omitempty"`

	// SignMessageDigest is the digest of the sent sign message, recorded
	// at build time so strict processing can verify the display proof.
	SignMessageDigest []byte `json:"signMessageDigest,omitempty"`

	// SignMessageDigestAlgorithm is the digest algorithm URI for
	// SignMessageDigest.
	SignMessageDigestAlgorithm string `json:"signMessageDigestAlgorithm,omitempty"`

	// SignRequest is the serialized outgoing SignRequest message.
	SignRequest []byte `json:"signRequest"`
}

// StateHandle references session state across the redirect. For server-held
// state only ID is set; for client-held state the handle embeds the state
// itself, either live (State) or in durable encoded form (Encoded).
type StateHandle struct {
	// ID is the request id the state is keyed by.
	ID string `json:"id"`

	// State is the embedded session state (client-held, in-process callers).
	State *SessionState `json:"-"`

	// Encoded is the durable encoding of the session state (client-held,
	// callers crossing a process or transport boundary).
	Encoded string `json:"encoded,omitempty"`
}

// ClientHeld reports whether the handle embeds its session state.
func (h *StateHandle) ClientHeld() bool {
	return h != nil && (h.State != nil || h.Encoded != "")
}
