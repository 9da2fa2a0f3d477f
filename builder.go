package signintegration

import (
	"context"
	"fmt"

	"github.com/crewjam/saml"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// extensionVersion is the DSS extension profile version sent in requests.
const extensionVersion = "1.1"

// SignRequestData is what CreateSignRequest hands back to the caller: the
// message to post to the signature service and the state handle to present
// together with the eventual response.
type SignRequestData struct {
	// RequestID is the generated id of the SignRequest.
	RequestID string `json:"requestId"`

	// CorrelationID echoes (or assigns) the caller's transaction id.
	CorrelationID string `json:"correlationId"`

	// DestinationURL is where the browser must post the SignRequest.
	DestinationURL string `json:"destinationUrl"`

	// SignRequest is the base64-encoded SignRequest message.
	SignRequest string `json:"signRequest"`

	// State is the handle that must accompany the sign response.
	State *domain.StateHandle `json:"state"`
}

// CreateSignRequest validates the input, merges policy defaults,
// pre-processes the documents, assembles the outgoing SignRequest and
// creates the session state. The owner id scopes state and content-cache
// access to the calling application.
func (s *IntegrationService) CreateSignRequest(ctx context.Context, input *domain.SignRequestInput, ownerID string) (*SignRequestData, error) {
	if input == nil {
		return nil, domain.ValidationError("", "no input was supplied")
	}

	policy, err := s.policies.ByName(input.PolicyName)
	if err != nil {
		s.recordRequestCreated(input.PolicyName, false)
		return nil, err
	}

	resolved, err := s.resolveInput(ctx, input, policy, ownerID)
	if err != nil {
		s.recordRequestCreated(policy.Name, false)
		return nil, err
	}

	envelope, state, err := s.buildSignRequest(resolved, policy, ownerID)
	if err != nil {
		s.recordRequestCreated(policy.Name, false)
		return nil, err
	}

	handle, err := s.state.CreateState(ctx, state, policy, ownerID)
	if err != nil {
		s.recordRequestCreated(policy.Name, false)
		return nil, err
	}

	s.recordRequestCreated(policy.Name, true)
	s.logger.Info("sign request created",
		zap.String("request_id", state.RequestID),
		zap.String("correlation_id", state.CorrelationID),
		zap.String("policy", policy.Name),
		zap.Int("documents", len(resolved.Documents)),
		zap.Bool("stateless", policy.Stateless))

	return &SignRequestData{
		RequestID:      state.RequestID,
		CorrelationID:  state.CorrelationID,
		DestinationURL: resolved.DestinationURL,
		SignRequest:    envelope.Base64(),
		State:          handle,
	}, nil
}

// resolveInput validates the caller input and merges policy defaults. On
// return every policy-defaultable field is non-empty and every document is
// pre-processed with an id assigned.
func (s *IntegrationService) resolveInput(ctx context.Context, input *domain.SignRequestInput, policy *domain.PolicyConfiguration, ownerID string) (*domain.ResolvedInput, error) {
	resolved := &domain.ResolvedInput{
		CorrelationID:           input.CorrelationID,
		PolicyName:              policy.Name,
		SignRequesterID:         firstNonEmpty(input.SignRequesterID, policy.SignRequesterID),
		ReturnURL:               firstNonEmpty(input.ReturnURL, policy.DefaultReturnURL),
		DestinationURL:          firstNonEmpty(input.DestinationURL, policy.DefaultDestinationURL),
		SignServiceID:           policy.DefaultSignServiceID,
		SignatureAlgorithm:      firstNonEmpty(input.SignatureAlgorithm, policy.Algorithm()),
		AuthnRequirements:       input.AuthnRequirements,
		CertificateRequirements: input.CertificateRequirements,
		SignMessageParameters:   input.SignMessageParameters,
	}
	if resolved.CorrelationID == "" {
		resolved.CorrelationID = uuid.NewString()
	}
	if resolved.SignRequesterID == "" {
		return nil, domain.ValidationError("signRequesterId",
			"no sign requester id was given and the policy has no default")
	}
	if resolved.ReturnURL == "" {
		return nil, domain.ValidationError("returnUrl",
			"no return URL was given and the policy has no default")
	}
	if resolved.DestinationURL == "" {
		return nil, domain.ValidationError("destinationUrl",
			"no destination URL was given and the policy has no default")
	}
	if resolved.AuthnRequirements.AuthnServiceID == "" {
		resolved.AuthnRequirements.AuthnServiceID = policy.DefaultAuthnServiceID
	}
	if resolved.AuthnRequirements.AuthnServiceID == "" {
		return nil, domain.ValidationError("authnRequirements.authnServiceId",
			"no authentication service was given and the policy has no default")
	}
	if len(resolved.AuthnRequirements.AuthnContextClassRefs) == 0 && policy.DefaultAuthnContextRef != "" {
		resolved.AuthnRequirements.AuthnContextClassRefs = []string{policy.DefaultAuthnContextRef}
	}
	if len(resolved.AuthnRequirements.AuthnContextClassRefs) == 0 {
		return nil, domain.ValidationError("authnRequirements.authnContextClassRefs",
			"no authentication context was requested and the policy has no default")
	}
	if resolved.CertificateRequirements.CertificateType == "" {
		resolved.CertificateRequirements.CertificateType = policy.DefaultCertificateType
	}

	if len(input.TbsDocuments) == 0 {
		return nil, domain.ValidationError("tbsDocuments", "at least one document is required")
	}
	seen := make(map[string]bool, len(input.TbsDocuments))
	for i, doc := range input.TbsDocuments {
		if doc == nil {
			return nil, domain.ValidationError(fmt.Sprintf("tbsDocuments[%d]", i), "document is null")
		}
		if doc.MimeType == "" {
			return nil, domain.ValidationError(fmt.Sprintf("tbsDocuments[%d].mimeType", i), "MIME type is missing")
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if seen[doc.ID] {
			return nil, domain.ValidationError(fmt.Sprintf("tbsDocuments[%d].id", i),
				fmt.Sprintf("duplicate document id %q", doc.ID))
		}
		seen[doc.ID] = true

		processor, ok := s.processorFor(doc.MimeType)
		if !ok {
			return nil, domain.ValidationError(fmt.Sprintf("tbsDocuments[%d].mimeType", i),
				fmt.Sprintf("no document processor supports %q", doc.MimeType))
		}
		prepared, err := processor.PreProcess(ctx, doc, policy, s.content, ownerID)
		if err != nil {
			return nil, err
		}
		resolved.Documents = append(resolved.Documents, prepared)
	}

	return resolved, nil
}

// buildSignRequest assembles the outgoing message and its session state.
// It has no side effects beyond the returned values; persisting the state
// is the state manager's job.
func (s *IntegrationService) buildSignRequest(resolved *domain.ResolvedInput, policy *domain.PolicyConfiguration, ownerID string) (*protocol.SignRequestEnvelope, *domain.SessionState, error) {
	requestID := uuid.NewString()
	now := s.now().UTC()

	ext := &protocol.SignRequestExtension{
		Version:     extensionVersion,
		RequestTime: now,
		Conditions: &saml.Conditions{
			NotBefore:    now.Add(-policy.ClockSkew()),
			NotOnOrAfter: now.Add(policy.Validity()),
			AudienceRestrictions: []saml.AudienceRestriction{
				{Audience: saml.Audience{Value: resolved.ReturnURL}},
			},
		},
		IdentityProvider:            protocol.EntityID{Value: resolved.AuthnRequirements.AuthnServiceID},
		SignRequester:               protocol.EntityID{Value: resolved.SignRequesterID},
		SignService:                 protocol.EntityID{Value: resolved.SignServiceID},
		RequestedSignatureAlgorithm: resolved.SignatureAlgorithm,
		CertRequestProperties: &protocol.CertRequestProperties{
			CertType:              resolved.CertificateRequirements.CertificateType,
			AuthnContextClassRefs: resolved.AuthnRequirements.AuthnContextClassRefs,
		},
	}

	if attrs := resolved.AuthnRequirements.SignerIdentityAttributes; len(attrs) > 0 {
		statement := saml.AttributeStatement{}
		for _, a := range attrs {
			statement.Attributes = append(statement.Attributes, saml.Attribute{
				Name:   a.Name,
				Values: []saml.AttributeValue{{Value: a.Value}},
			})
		}
		ext.Signer = &protocol.Signer{AttributeStatement: statement}
	}

	for _, mapping := range resolved.CertificateRequirements.AttributeMappings {
		req := protocol.RequestedAttribute{
			CertAttributeRef:   mapping.DestinationName,
			CertNameType:       mapping.DestinationType,
			Required:           mapping.Required,
			SamlAttributeNames: mapping.Sources,
		}
		if mapping.DefaultValue != nil {
			req.DefaultValue = *mapping.DefaultValue
		}
		ext.CertRequestProperties.RequestedAttributes = append(
			ext.CertRequestProperties.RequestedAttributes, req)
	}

	state := &domain.SessionState{
		CorrelationID:           resolved.CorrelationID,
		PolicyName:              policy.Name,
		OwnerID:                 ownerID,
		RequestID:               requestID,
		RequestTime:             now,
		ExpectedReturnURL:       resolved.ReturnURL,
		AuthnServiceID:          resolved.AuthnRequirements.AuthnServiceID,
		AuthnContextClassRefs:   resolved.AuthnRequirements.AuthnContextClassRefs,
		CertificateRequirements: resolved.CertificateRequirements,
		Documents:               resolved.Documents,
	}

	if resolved.SignMessageParameters != nil {
		msg, err := s.messages.Build(resolved.SignMessageParameters, policy)
		if err != nil {
			return nil, nil, err
		}
		ext.SignMessage = msg

		// The digest of the sent message is recorded so that strict
		// processing can verify the display proof on return.
		digestURI, ok := protocol.DigestURIForSignatureURI(resolved.SignatureAlgorithm)
		if !ok {
			digestURI = protocol.DigestSHA256
		}
		hash, _ := protocol.HashForDigestURI(digestURI)
		hasher := hash.New()
		hasher.Write(msg.Message)
		state.SignMessage = resolved.SignMessageParameters
		state.SignMessageDigest = hasher.Sum(nil)
		state.SignMessageDigestAlgorithm = digestURI
	}

	tasks := &protocol.SignTasks{}
	for _, doc := range resolved.Documents {
		processor, ok := s.processorFor(doc.MimeType)
		if !ok {
			return nil, nil, domain.InternalError(
				fmt.Sprintf("no document processor supports %q after pre-processing", doc.MimeType), nil)
		}
		task, err := processor.ToBeSigned(doc, resolved.SignatureAlgorithm, policy)
		if err != nil {
			return nil, nil, err
		}
		tasks.Tasks = append(tasks.Tasks, *task)
	}

	msg := &protocol.SignRequest{
		Profile:   protocol.Profile,
		RequestID: requestID,
		OptionalInputs: protocol.OptionalInputs{
			SignRequestExtension: ext,
		},
		InputDocuments: protocol.InputDocuments{
			Other: protocol.Other{SignTasks: tasks},
		},
	}

	envelope, err := protocol.NewSignRequestEnvelope(msg)
	if err != nil {
		return nil, nil, domain.InternalError("serialize SignRequest", err)
	}
	state.SignRequest = envelope.Raw()

	return envelope, state, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
