//go:build unit

package signintegration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/contentcache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/policy"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/statecache"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// defaultTestPolicy carries defaults for every policy-defaultable field so
// minimal inputs resolve successfully.
func defaultTestPolicy() *domain.PolicyConfiguration {
	return &domain.PolicyConfiguration{
		Name:                   "default",
		SignRequesterID:        "https://sp.example",
		DefaultDestinationURL:  "https://sign.example/request",
		DefaultReturnURL:       "https://sp.example/return",
		DefaultSignServiceID:   "https://sign.example",
		DefaultAuthnServiceID:  "https://idp.example",
		DefaultAuthnContextRef: "http://id.elegnamnden.se/loa/1.0/loa3",
		DefaultCertificateType: "PKC",
	}
}

type testServiceParts struct {
	service *IntegrationService
	cache   *statecache.MemoryStateCache
	content *contentcache.MemoryContentCache
}

func newTestService(t *testing.T, policies ...*domain.PolicyConfiguration) *testServiceParts {
	t.Helper()
	if len(policies) == 0 {
		policies = []*domain.PolicyConfiguration{defaultTestPolicy()}
	}
	store, err := policy.NewInMemoryPolicyStore(policies...)
	if err != nil {
		t.Fatalf("policy store: %v", err)
	}
	cache := statecache.NewMemoryStateCache()
	content := contentcache.NewMemoryContentCache()
	service, err := NewIntegrationService(Config{
		PolicyStore:  store,
		StateCache:   cache,
		ContentCache: content,
	})
	if err != nil {
		t.Fatalf("NewIntegrationService: %v", err)
	}
	return &testServiceParts{service: service, cache: cache, content: content}
}

func xmlInput() *domain.SignRequestInput {
	return &domain.SignRequestInput{
		TbsDocuments: []*domain.TbsDocument{{
			MimeType: "application/xml",
			Content:  []byte(`<Contract><Amount>100</Amount></Contract>`),
		}},
	}
}

// TestCreateSignRequest_PolicyDefaults verifies a minimal input is filled
// entirely from the policy and produces a well-formed SignRequest.
func TestCreateSignRequest_PolicyDefaults(t *testing.T) {
	parts := newTestService(t)

	data, err := parts.service.CreateSignRequest(context.Background(), xmlInput(), "owner-a")
	if err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}

	if data.RequestID == "" {
		t.Error("RequestID is empty")
	}
	if data.CorrelationID == "" {
		t.Error("CorrelationID should be assigned when the caller omits it")
	}
	if data.DestinationURL != "https://sign.example/request" {
		t.Errorf("DestinationURL = %q", data.DestinationURL)
	}
	if data.State == nil || data.State.ID != data.RequestID {
		t.Errorf("State = %+v", data.State)
	}

	env, err := protocol.DecodeSignRequestEnvelope(data.SignRequest)
	if err != nil {
		t.Fatalf("the produced SignRequest does not decode: %v", err)
	}
	msg := env.Message()
	if msg.RequestID != data.RequestID {
		t.Errorf("message RequestID = %q", msg.RequestID)
	}
	if msg.Profile != protocol.Profile {
		t.Errorf("Profile = %q", msg.Profile)
	}

	ext := msg.OptionalInputs.SignRequestExtension
	if ext == nil {
		t.Fatal("SignRequestExtension is missing")
	}
	if ext.IdentityProvider.Value != "https://idp.example" {
		t.Errorf("IdentityProvider = %q", ext.IdentityProvider.Value)
	}
	if ext.SignRequester.Value != "https://sp.example" {
		t.Errorf("SignRequester = %q", ext.SignRequester.Value)
	}
	if ext.SignService.Value != "https://sign.example" {
		t.Errorf("SignService = %q", ext.SignService.Value)
	}
	if ext.RequestedSignatureAlgorithm != domain.DefaultSignatureAlgorithm {
		t.Errorf("RequestedSignatureAlgorithm = %q", ext.RequestedSignatureAlgorithm)
	}
	if ext.CertRequestProperties.CertType != "PKC" {
		t.Errorf("CertType = %q", ext.CertRequestProperties.CertType)
	}
	if got := ext.CertRequestProperties.AuthnContextClassRefs; len(got) != 1 || got[0] != "http://id.elegnamnden.se/loa/1.0/loa3" {
		t.Errorf("AuthnContextClassRefs = %v", got)
	}
	if ext.Conditions == nil || len(ext.Conditions.AudienceRestrictions) != 1 {
		t.Fatal("Conditions with one audience restriction expected")
	}
	if ext.Conditions.AudienceRestrictions[0].Audience.Value != "https://sp.example/return" {
		t.Errorf("Audience = %q", ext.Conditions.AudienceRestrictions[0].Audience.Value)
	}
	if !ext.Conditions.NotBefore.Before(ext.Conditions.NotOnOrAfter) {
		t.Error("Conditions window is empty")
	}

	tasks := msg.InputDocuments.Other.SignTasks
	if tasks == nil || len(tasks.Tasks) != 1 {
		t.Fatal("one sign task expected")
	}
	if tasks.Tasks[0].SigType != protocol.SigTypeXML {
		t.Errorf("SigType = %q", tasks.Tasks[0].SigType)
	}
}

// TestCreateSignRequest_CallerOverridesWin verifies explicit input fields
// take precedence over policy defaults.
func TestCreateSignRequest_CallerOverridesWin(t *testing.T) {
	parts := newTestService(t)
	input := xmlInput()
	input.CorrelationID = "my-corr"
	input.DestinationURL = "https://other-sign.example/request"
	input.SignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"
	input.AuthnRequirements.AuthnContextClassRefs = []string{"http://id.elegnamnden.se/loa/1.0/loa4"}

	data, err := parts.service.CreateSignRequest(context.Background(), input, "owner-a")
	if err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}
	if data.CorrelationID != "my-corr" {
		t.Errorf("CorrelationID = %q", data.CorrelationID)
	}
	if data.DestinationURL != "https://other-sign.example/request" {
		t.Errorf("DestinationURL = %q", data.DestinationURL)
	}

	env, _ := protocol.DecodeSignRequestEnvelope(data.SignRequest)
	ext := env.Message().OptionalInputs.SignRequestExtension
	if ext.RequestedSignatureAlgorithm != input.SignatureAlgorithm {
		t.Errorf("RequestedSignatureAlgorithm = %q", ext.RequestedSignatureAlgorithm)
	}
	if got := ext.CertRequestProperties.AuthnContextClassRefs; len(got) != 1 || got[0] != "http://id.elegnamnden.se/loa/1.0/loa4" {
		t.Errorf("AuthnContextClassRefs = %v", got)
	}
}

// TestCreateSignRequest_DistinctRequestIDs verifies every request gets its
// own id even for identical inputs.
func TestCreateSignRequest_DistinctRequestIDs(t *testing.T) {
	parts := newTestService(t)

	first, err := parts.service.CreateSignRequest(context.Background(), xmlInput(), "owner-a")
	if err != nil {
		t.Fatalf("first CreateSignRequest: %v", err)
	}
	second, err := parts.service.CreateSignRequest(context.Background(), xmlInput(), "owner-a")
	if err != nil {
		t.Fatalf("second CreateSignRequest: %v", err)
	}
	if first.RequestID == second.RequestID {
		t.Error("request ids must be distinct")
	}
}

func TestCreateSignRequest_ValidationErrors(t *testing.T) {
	bare := &domain.PolicyConfiguration{Name: "bare", SignRequesterID: "https://sp.example"}
	two := func() *domain.SignRequestInput {
		in := xmlInput()
		in.TbsDocuments[0].ID = "dup"
		in.TbsDocuments = append(in.TbsDocuments, &domain.TbsDocument{
			ID: "dup", MimeType: "application/xml", Content: []byte("<b/>"),
		})
		return in
	}()

	tests := []struct {
		name  string
		input *domain.SignRequestInput
		field string
	}{
		{"nil input", nil, ""},
		{"no documents", &domain.SignRequestInput{PolicyName: "default"}, "tbsDocuments"},
		{"missing mime type", &domain.SignRequestInput{TbsDocuments: []*domain.TbsDocument{{Content: []byte("<a/>")}}}, "mimeType"},
		{"unsupported mime type", &domain.SignRequestInput{TbsDocuments: []*domain.TbsDocument{{MimeType: "image/png", Content: []byte("x")}}}, "mimeType"},
		{"duplicate document ids", two, "id"},
	}
	parts := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parts.service.CreateSignRequest(context.Background(), tt.input, "owner-a")
			var integrationErr *domain.IntegrationError
			if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeValidation {
				t.Fatalf("error = %v, want validation error", err)
			}
			if tt.field != "" && !strings.Contains(integrationErr.FieldName, tt.field) {
				t.Errorf("FieldName = %q, want it to contain %q", integrationErr.FieldName, tt.field)
			}
		})
	}

	// A policy without defaults rejects inputs that rely on them.
	bareParts := newTestService(t, bare)
	_, err := bareParts.service.CreateSignRequest(context.Background(), &domain.SignRequestInput{
		PolicyName:   "bare",
		TbsDocuments: []*domain.TbsDocument{{MimeType: "application/xml", Content: []byte("<a/>")}},
	}, "owner-a")
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeValidation {
		t.Errorf("error = %v, want validation error for missing return URL", err)
	}
}

func TestCreateSignRequest_PolicyNotFound(t *testing.T) {
	parts := newTestService(t)
	input := xmlInput()
	input.PolicyName = "unknown"

	_, err := parts.service.CreateSignRequest(context.Background(), input, "owner-a")
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodePolicyNotFound {
		t.Errorf("error = %v, want policy-not-found", err)
	}
}

// TestCreateSignRequest_Stateless verifies a stateless policy hands the
// whole state to the caller and stores nothing.
func TestCreateSignRequest_Stateless(t *testing.T) {
	p := defaultTestPolicy()
	p.Stateless = true
	parts := newTestService(t, p)

	data, err := parts.service.CreateSignRequest(context.Background(), xmlInput(), "owner-a")
	if err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}
	if !data.State.ClientHeld() || data.State.Encoded == "" {
		t.Error("stateless policy must produce a client-held handle with a durable encoding")
	}
	if parts.cache.Len() != 0 {
		t.Errorf("cache Len() = %d, want 0", parts.cache.Len())
	}
}

// TestCreateSignRequest_StatelessRejectsContentReference verifies content
// references are refused when there is no server-held state to anchor them.
func TestCreateSignRequest_StatelessRejectsContentReference(t *testing.T) {
	p := defaultTestPolicy()
	p.Stateless = true
	parts := newTestService(t, p)
	parts.content.Put("ref-1", []byte("<a/>"), "owner-a")

	_, err := parts.service.CreateSignRequest(context.Background(), &domain.SignRequestInput{
		TbsDocuments: []*domain.TbsDocument{{MimeType: "application/xml", ContentReference: "ref-1"}},
	}, "owner-a")
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

// TestCreateSignRequest_ContentReference verifies references resolve
// through the content cache under the caller's identity.
func TestCreateSignRequest_ContentReference(t *testing.T) {
	parts := newTestService(t)
	parts.content.Put("ref-1", []byte(`<Contract/>`), "owner-a")

	input := &domain.SignRequestInput{
		TbsDocuments: []*domain.TbsDocument{{MimeType: "application/xml", ContentReference: "ref-1"}},
	}
	if _, err := parts.service.CreateSignRequest(context.Background(), input, "owner-a"); err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}

	// Another owner's reference does not resolve.
	input = &domain.SignRequestInput{
		TbsDocuments: []*domain.TbsDocument{{MimeType: "application/xml", ContentReference: "ref-1"}},
	}
	if _, err := parts.service.CreateSignRequest(context.Background(), input, "owner-b"); err == nil {
		t.Error("a foreign content reference must not resolve")
	}
}

// TestCreateSignRequest_SignMessage verifies the sign message is embedded
// in the request and its digest recorded in the session state.
func TestCreateSignRequest_SignMessage(t *testing.T) {
	p := defaultTestPolicy()
	p.Stateless = true // client-held state makes the recorded digest inspectable
	parts := newTestService(t, p)

	input := xmlInput()
	input.SignMessageParameters = &domain.SignMessageParameters{
		Content:  []byte("You are signing the contract."),
		MustShow: true,
	}

	data, err := parts.service.CreateSignRequest(context.Background(), input, "owner-a")
	if err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}

	env, _ := protocol.DecodeSignRequestEnvelope(data.SignRequest)
	msg := env.Message().OptionalInputs.SignRequestExtension.SignMessage
	if msg == nil {
		t.Fatal("SignMessage is missing from the request")
	}
	if !msg.MustShow {
		t.Error("MustShow was lost")
	}
	if msg.DisplayEntity != "https://idp.example" {
		t.Errorf("DisplayEntity = %q", msg.DisplayEntity)
	}

	state := data.State.State
	if state == nil {
		t.Fatal("client-held handle carries no live state")
	}
	if len(state.SignMessageDigest) == 0 || state.SignMessageDigestAlgorithm == "" {
		t.Error("the sign message digest was not recorded in the state")
	}
}
