package domain

import (
	"crypto/x509"
	"fmt"
	"time"
)

// DefaultSignatureAlgorithm is used when neither the caller nor the policy
// names a signature algorithm.
const DefaultSignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

// DefaultStateValidity bounds how long a server-held session state (and the
// conditions window of an outgoing request) stays valid when the policy does
// not say otherwise.
const DefaultStateValidity = 15 * time.Minute

// DefaultAllowedClockSkew is the freshness-window tolerance applied when the
// policy does not configure one.
const DefaultAllowedClockSkew = 30 * time.Second

// EncryptionParameters holds the sign-message encryption defaults of a
// policy. Encryption itself is performed by an external service; the engine
// only carries the parameters and refuses to silently downgrade when
// Required is set.
type EncryptionParameters struct {
	Required                bool   `json:"required" yaml:"required"`
	DataEncryptionAlgorithm string `json:"dataEncryptionAlgorithm,omitempty" yaml:"dataEncryptionAlgorithm"`
	KeyTransportAlgorithm   string `json:"keyTransportAlgorithm,omitempty" yaml:"keyTransportAlgorithm"`
}

// PolicyConfiguration is a named, immutable bundle of defaults and trust
// material for one signing configuration. Instances are shared between
// transactions and must not be mutated after creation.
type PolicyConfiguration struct {
	// Name identifies the policy in the policy store.
	Name string

	// SignRequesterID is the entity id of the relying application,
	// used when the caller does not supply one.
	SignRequesterID string

	// DefaultDestinationURL is where the SignRequest is posted when the
	// caller does not name a destination.
	DefaultDestinationURL string

	// DefaultReturnURL receives the SignResponse when the caller does not
	// name a return URL.
	DefaultReturnURL string

	// DefaultSignServiceID is the entity id of the remote signature service.
	DefaultSignServiceID string

	// DefaultAuthnServiceID is the entity id of the service that
	// authenticates the signer.
	DefaultAuthnServiceID string

	// DefaultAuthnContextRef is requested when the caller does not request
	// any authentication context.
	DefaultAuthnContextRef string

	// SignatureAlgorithm is the default signature algorithm URI.
	SignatureAlgorithm string

	// DefaultCertificateType is the certificate type requested for the
	// signing certificate (e.g. "PKC", "QC", "QC/SSCD").
	DefaultCertificateType string

	// EncryptionParameters are the sign-message encryption defaults.
	EncryptionParameters EncryptionParameters

	// StrictProcessing turns several lenient response checks into hard
	// failures (attribute delivery, assertion matching, sign-message proof).
	StrictProcessing bool

	// RequireSignerAssertion makes a missing signer assertion fatal.
	RequireSignerAssertion bool

	// AllowedClockSkew is the tolerance applied to the authentication
	// instant freshness window.
	AllowedClockSkew time.Duration

	// StateValidity bounds server-held session state and the request
	// conditions window.
	StateValidity time.Duration

	// Stateless selects client-held session state. Content references are
	// forbidden under a stateless policy.
	Stateless bool

	// TrustAnchors are the certificates trusted to sign SignResponse
	// messages. Empty means response signatures are not validated.
	TrustAnchors []*x509.Certificate

	// AllowedAuthnContexts is an explicit allow-list of authentication
	// context references accepted in a response in addition to the
	// originally requested set. Equivalences are never implicit.
	AllowedAuthnContexts []string
}

// Validate checks that the policy is internally consistent.
func (p *PolicyConfiguration) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	if p.AllowedClockSkew < 0 {
		return fmt.Errorf("policy %q: allowedClockSkew must not be negative", p.Name)
	}
	if p.StateValidity < 0 {
		return fmt.Errorf("policy %q: stateValidity must not be negative", p.Name)
	}
	return nil
}

// ClockSkew returns the configured clock skew or the default.
func (p *PolicyConfiguration) ClockSkew() time.Duration {
	if p.AllowedClockSkew > 0 {
		return p.AllowedClockSkew
	}
	return DefaultAllowedClockSkew
}

// Validity returns the configured state validity or the default.
func (p *PolicyConfiguration) Validity() time.Duration {
	if p.StateValidity > 0 {
		return p.StateValidity
	}
	return DefaultStateValidity
}

// Algorithm returns the configured signature algorithm or the default.
func (p *PolicyConfiguration) Algorithm() string {
	if p.SignatureAlgorithm != "" {
		return p.SignatureAlgorithm
	}
	return DefaultSignatureAlgorithm
}

// AcceptsAuthnContext reports whether ref is a member of the requested set
// or of the policy's explicit allow-list.
func (p *PolicyConfiguration) AcceptsAuthnContext(ref string, requested []string) bool {
	for _, r := range requested {
		if r == ref {
			return true
		}
	}
	for _, r := range p.AllowedAuthnContexts {
		if r == ref {
			return true
		}
	}
	return false
}
