package signintegration

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// SignMessageDigestAttribute is the identity attribute through which a
// signature service proves that the sign message was displayed. The value
// format is "<digest-algorithm-uri>;<base64-digest>"; a value without the
// algorithm prefix is read as SHA-256.
const SignMessageDigestAttribute = "urn:oid:1.2.752.201.3.14"

// Processing outcomes used for metrics and logging.
const (
	outcomeComplete    = "complete"
	outcomeCancelled   = "cancelled"
	outcomeErrorStatus = "error-status"
	outcomeRejected    = "rejected"
)

// ProcessingOptions tune ProcessSignResponse.
type ProcessingOptions struct {
	// ReturnAssertion includes the raw assertion in the result when one
	// was delivered.
	ReturnAssertion bool
}

// ProcessSignResponse validates and unpacks a returned SignResponse. Every
// step is a hard gate: no partial result passes a failed check. The relay
// id is the value posted back by the signature service; the handle is the
// one handed out by CreateSignRequest; the owner id must be the same
// caller identity the request was created under.
func (s *IntegrationService) ProcessSignResponse(ctx context.Context, encodedResponse, relayID string, handle *domain.StateHandle, ownerID string, opts *ProcessingOptions) (*domain.SignatureResult, error) {
	if opts == nil {
		opts = &ProcessingOptions{}
	}

	// Gate 1: decode. The response is untrusted input from the browser.
	envelope, err := protocol.DecodeSignResponseEnvelope(encodedResponse)
	if err != nil {
		return nil, domain.ProtocolError("the sign response message could not be decoded", err)
	}

	// Gate 2: resolve state. Errors propagate unchanged.
	state, err := s.state.ResolveState(ctx, handle, ownerID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("request_id", state.RequestID),
		zap.String("correlation_id", state.CorrelationID),
		zap.String("policy", state.PolicyName))

	result, err := s.processResolved(envelope, relayID, state, opts, log)
	if err != nil {
		s.recordResponseProcessed(state.PolicyName, outcomeFor(err))
		return nil, err
	}
	s.recordResponseProcessed(state.PolicyName, outcomeComplete)
	log.Info("sign response processed",
		zap.Int("signed_documents", len(result.SignedDocuments)),
		zap.String("authn_context", result.AuthnContextRef))
	return result, nil
}

func outcomeFor(err error) string {
	if IsUserCancelled(err) {
		return outcomeCancelled
	}
	if _, ok := AsErrorStatus(err); ok {
		return outcomeErrorStatus
	}
	return outcomeRejected
}

func (s *IntegrationService) processResolved(envelope *protocol.SignResponseEnvelope, relayID string, state *domain.SessionState, opts *ProcessingOptions, log *zap.Logger) (*domain.SignatureResult, error) {
	msg := envelope.Message()

	// Gate 3: binding. The relay id and the echoed request id must both
	// equal the request id the state was created under. This is the core
	// replay and cross-session defense.
	if relayID != state.RequestID {
		return nil, domain.BadRequestError(
			"the relay id of the response does not match the sign request")
	}
	if msg.RequestID != "" && msg.RequestID != state.RequestID {
		return nil, domain.BadRequestError(
			"the in-response-to id of the response does not match the sign request")
	}

	// Gate 4: status.
	if msg.Result.UserCancelled() {
		return nil, &domain.SigningCancelledError{RequestID: state.RequestID}
	}
	if !msg.Result.Success() {
		return nil, &domain.SigningErrorStatus{
			RequestID: state.RequestID,
			Major:     msg.Result.ResultMajor,
			Minor:     msg.Result.ResultMinor,
			Message:   msg.Result.ResultMessage,
		}
	}

	// Gate 5: the policy named in the state must still be configured.
	// Its absence is a server-side configuration fault, not a caller fault.
	policy, err := s.policies.ByName(state.PolicyName)
	if err != nil {
		return nil, domain.InternalError(
			fmt.Sprintf("the policy %q of the pending transaction is no longer configured", state.PolicyName), err)
	}

	// Response signature validation, when the policy carries trust
	// anchors. Under strict processing a failure is fatal; otherwise it
	// downgrades to a logged warning.
	if s.verifier != nil && len(policy.TrustAnchors) > 0 {
		validated, err := s.verifier.Verify(envelope.Raw(), policy.TrustAnchors)
		if err != nil {
			if policy.StrictProcessing {
				return nil, err
			}
			log.Warn("sign response signature did not validate; continuing under lenient processing",
				zap.Error(err))
		} else {
			revalidated, err := protocol.ParseSignResponseEnvelope(validated)
			if err != nil {
				return nil, domain.ProtocolError("the validated sign response could not be re-parsed", err)
			}
			envelope = revalidated
			msg = envelope.Message()
		}
	}

	// Gate 6: signer assertion checks.
	ext := envelope.Extension()
	if ext == nil {
		return nil, domain.ProtocolError("the sign response carries no response extension", nil)
	}
	info := ext.SignerAssertionInfo
	if info == nil {
		return nil, domain.ProtocolError("the sign response carries no signer assertion info", nil)
	}

	delivered := info.DeliveredAttributes()
	if policy.StrictProcessing {
		if err := checkRequiredAttributes(state.CertificateRequirements, delivered); err != nil {
			return nil, err
		}
	}

	authnService := info.ContextInfo.IdentityProvider.Value
	if authnService == "" {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the response does not name the authenticating service")
	}
	if authnService != state.AuthnServiceID {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the authenticating service of the response is not the one that was requested")
	}

	assertion, err := selectAssertion(info, policy, log)
	if err != nil {
		return nil, err
	}

	// Freshness window: the signer must have authenticated after the
	// request was sent and before the response was produced, within the
	// policy's clock skew.
	skew := policy.ClockSkew()
	instant := info.ContextInfo.AuthenticationInstant
	if instant.Add(skew).Before(state.RequestTime) {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the signer authentication predates the sign request")
	}
	if instant.Add(-skew).After(ext.ResponseTime) {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the signer authentication postdates the sign response")
	}

	// Context/LoA matching: only contexts that were requested, or that the
	// policy explicitly allows, are accepted. Never implicit equivalences.
	contextRef := info.ContextInfo.AuthnContextClassRef
	if !policy.AcceptsAuthnContext(contextRef, state.AuthnContextClassRefs) {
		return nil, domain.ProcessingError(domain.DetailInvalidAuthnContext,
			fmt.Sprintf("the authentication context %q was not requested", contextRef))
	}

	signMessageDisplayed, err := verifySignMessageProof(state, policy, delivered, assertion, log)
	if err != nil {
		return nil, err
	}

	// Gate 7: per-document validation and compilation.
	chain, err := parseCertificateChain(ext.SignatureCertificateChain)
	if err != nil {
		return nil, err
	}
	tasks := envelope.SignTasks()
	signed := make([]*domain.SignedDocument, 0, len(state.Documents))
	for _, doc := range state.Documents {
		task := tasks.Task(doc.ID)
		if task == nil {
			return nil, domain.ProtocolError(
				fmt.Sprintf("the response carries no sign task for document %q", doc.ID), nil)
		}
		processor, ok := s.processorFor(doc.MimeType)
		if !ok {
			return nil, domain.InternalError(
				fmt.Sprintf("no document processor supports %q", doc.MimeType), nil)
		}
		if err := processor.ValidateSignedTask(doc, task, chain, policy.StrictProcessing); err != nil {
			return nil, err
		}
		compiled, err := processor.Compile(doc, task, chain)
		if err != nil {
			return nil, err
		}
		signed = append(signed, compiled)
	}

	// Gate 8: only now, with every document compiled, is a result built.
	result := &domain.SignatureResult{
		CorrelationID:        state.CorrelationID,
		RequestID:            state.RequestID,
		AuthnContextRef:      contextRef,
		AuthnServiceID:       authnService,
		AuthnInstant:         instant,
		AssertionReference:   info.ContextInfo.AssertionRef,
		SignerAttributes:     flattenAttributes(delivered),
		SignedDocuments:      signed,
		SignMessageDisplayed: signMessageDisplayed,
	}
	if opts.ReturnAssertion {
		result.Assertion = assertion
	}
	return result, nil
}

// checkRequiredAttributes enforces, under strict processing, that every
// required certificate attribute without a default is satisfied by a
// delivered identity attribute via at least one of its declared sources.
func checkRequiredAttributes(reqs domain.CertificateRequirements, delivered map[string][]string) error {
	for _, mapping := range reqs.AttributeMappings {
		if !mapping.Required || mapping.DefaultValue != nil {
			continue
		}
		satisfied := false
		for _, source := range mapping.Sources {
			if len(delivered[source]) > 0 {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return domain.ProcessingError(domain.DetailAttributeMismatch,
				fmt.Sprintf("no attribute was delivered for the required certificate attribute %q",
					mapping.DestinationName))
		}
	}
	return nil
}

// selectAssertion picks the assertion the authentication is based on. The
// assertion reference must always be present. When several assertions were
// delivered, or under strict processing, the referenced assertion must be
// found among them; a single delivered assertion is trusted without
// matching only under lenient processing.
func selectAssertion(info *protocol.SignerAssertionInfo, policy *domain.PolicyConfiguration, log *zap.Logger) ([]byte, error) {
	ref := info.ContextInfo.AssertionRef
	if ref == "" {
		return nil, domain.ProcessingError(domain.DetailInvalidResponse,
			"the response carries no assertion reference")
	}

	var assertions [][]byte
	if info.SamlAssertions != nil {
		for _, a := range info.SamlAssertions.Assertions {
			assertions = append(assertions, a)
		}
	}
	if len(assertions) == 0 {
		if policy.RequireSignerAssertion {
			return nil, domain.ProcessingError(domain.DetailInvalidResponse,
				"the response carries no signer assertion")
		}
		log.Debug("no signer assertion delivered; tolerated by policy")
		return nil, nil
	}

	if len(assertions) == 1 && !policy.StrictProcessing {
		return assertions[0], nil
	}
	for _, a := range assertions {
		if assertionID(a) == ref {
			return a, nil
		}
	}
	return nil, domain.ProcessingError(domain.DetailInvalidResponse,
		"none of the delivered assertions matches the assertion reference")
}

// assertionID extracts the ID attribute of an assertion document.
func assertionID(assertion []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(assertion); err != nil {
		return ""
	}
	root := doc.Root()
	if root == nil {
		return ""
	}
	return root.SelectAttrValue("ID", "")
}

// verifySignMessageProof checks the display proof when the request
// mandated that the sign message be shown. The proof is the sign-message
// digest attribute, delivered directly or inside the selected assertion.
// A missing proof is fatal when the policy requires the signer assertion,
// otherwise a reduced-assurance warning. Under strict processing the
// claimed digest must match the digest recorded when the message was sent.
func verifySignMessageProof(state *domain.SessionState, policy *domain.PolicyConfiguration, delivered map[string][]string, assertion []byte, log *zap.Logger) (bool, error) {
	if state.SignMessage == nil || !state.SignMessage.MustShow {
		return false, nil
	}

	proof := ""
	if values := delivered[SignMessageDigestAttribute]; len(values) > 0 {
		proof = values[0]
	}
	if proof == "" && assertion != nil {
		proof = attributeFromAssertion(assertion, SignMessageDigestAttribute)
	}
	if proof == "" {
		if policy.RequireSignerAssertion {
			return false, domain.ProcessingError(domain.DetailSignMessage,
				"the response carries no proof that the sign message was displayed")
		}
		log.Warn("sign message display was mandated but the response carries no proof; reduced assurance")
		return false, nil
	}

	if policy.StrictProcessing {
		if err := compareSignMessageDigest(proof, state); err != nil {
			return false, err
		}
	}
	return true, nil
}

// compareSignMessageDigest recomputes the digest of the sent sign message
// and compares it to the claimed proof value.
func compareSignMessageDigest(proof string, state *domain.SessionState) error {
	algorithm := protocol.DigestSHA256
	value := proof
	if idx := strings.IndexByte(proof, ';'); idx >= 0 {
		algorithm = proof[:idx]
		value = proof[idx+1:]
	}

	claimed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return domain.ProcessingError(domain.DetailSignMessage,
			"the sign message digest proof could not be decoded")
	}

	var expected []byte
	if algorithm == state.SignMessageDigestAlgorithm {
		expected = state.SignMessageDigest
	} else {
		hash, ok := protocol.HashForDigestURI(algorithm)
		if !ok {
			return domain.InternalError(
				fmt.Sprintf("unsupported sign message digest algorithm %q", algorithm), nil)
		}
		hasher := hash.New()
		hasher.Write(state.SignMessage.Content)
		expected = hasher.Sum(nil)
	}

	if !bytes.Equal(claimed, expected) {
		return domain.ProcessingError(domain.DetailSignMessage,
			"the sign message digest proof does not match the sent sign message")
	}
	return nil
}

// attributeFromAssertion extracts the first value of the named attribute
// from an assertion document.
func attributeFromAssertion(assertion []byte, name string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(assertion); err != nil {
		return ""
	}
	root := doc.Root()
	if root == nil {
		return ""
	}
	// Walk by local name; assertion documents arrive with varying
	// namespace prefixes.
	stack := []*etree.Element{root}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if el.Tag == "Attribute" && el.SelectAttrValue("Name", "") == name {
			for _, child := range el.ChildElements() {
				if child.Tag == "AttributeValue" {
					return child.Text()
				}
			}
		}
		stack = append(stack, el.ChildElements()...)
	}
	return ""
}

// parseCertificateChain parses the DER certificates of the response. An
// empty chain is legal at this point; processors that need a certificate
// report its absence themselves.
func parseCertificateChain(chain *protocol.CertificateChain) ([]*x509.Certificate, error) {
	if chain == nil {
		return nil, nil
	}
	certs := make([]*x509.Certificate, 0, len(chain.Certificates))
	for i, der := range chain.Certificates {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, domain.ProtocolError(
				fmt.Sprintf("certificate %d of the response chain could not be parsed", i), err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func flattenAttributes(delivered map[string][]string) []domain.SignerAttribute {
	names := make([]string, 0, len(delivered))
	for name := range delivered {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []domain.SignerAttribute
	for _, name := range names {
		for _, v := range delivered[name] {
			out = append(out, domain.SignerAttribute{Name: name, Value: v})
		}
	}
	return out
}
