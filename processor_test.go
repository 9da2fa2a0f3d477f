//go:build unit

package signintegration

import (
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/signature"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
	"github.com/idsec-solutions/signservice-integration-sub001/testfixtures/signservice"
)

// createRequest runs CreateSignRequest and hands back the data plus the
// decoded request envelope, ready to feed the fake signature service.
func createRequest(t *testing.T, parts *testServiceParts, input *domain.SignRequestInput, owner string) (*SignRequestData, *protocol.SignRequestEnvelope) {
	t.Helper()
	data, err := parts.service.CreateSignRequest(context.Background(), input, owner)
	if err != nil {
		t.Fatalf("CreateSignRequest: %v", err)
	}
	env, err := protocol.DecodeSignRequestEnvelope(data.SignRequest)
	if err != nil {
		t.Fatalf("decode produced SignRequest: %v", err)
	}
	return data, env
}

func respond(t *testing.T, r *signservice.Responder, env *protocol.SignRequestEnvelope, opts signservice.ResponseOptions) (string, string) {
	t.Helper()
	encoded, relay, err := r.Respond(env, opts)
	if err != nil {
		t.Fatalf("fake signature service: %v", err)
	}
	return encoded, relay
}

func wantProcessingError(t *testing.T, err error, code domain.ErrorCode, detail string) {
	t.Helper()
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) {
		t.Fatalf("error = %v, want an integration error", err)
	}
	if integrationErr.Code != code {
		t.Errorf("Code = %q, want %q", integrationErr.Code, code)
	}
	if detail != "" && integrationErr.DetailCode != detail {
		t.Errorf("DetailCode = %q, want %q", integrationErr.DetailCode, detail)
	}
}

// TestProcessSignResponse_EndToEnd runs the full happy path: build a
// request, let the fake signature service answer it, process the response
// and check the compiled result. The consumed state must not be usable a
// second time.
func TestProcessSignResponse_EndToEnd(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)
	ctx := context.Background()

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})

	result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	if err != nil {
		t.Fatalf("ProcessSignResponse: %v", err)
	}

	if result.RequestID != data.RequestID {
		t.Errorf("RequestID = %q, want %q", result.RequestID, data.RequestID)
	}
	if result.CorrelationID != data.CorrelationID {
		t.Errorf("CorrelationID = %q, want %q", result.CorrelationID, data.CorrelationID)
	}
	if result.AuthnContextRef != "http://id.elegnamnden.se/loa/1.0/loa3" {
		t.Errorf("AuthnContextRef = %q", result.AuthnContextRef)
	}
	if result.AuthnServiceID != "https://idp.example" {
		t.Errorf("AuthnServiceID = %q", result.AuthnServiceID)
	}
	if result.AssertionReference == "" {
		t.Error("AssertionReference is empty")
	}
	if got := result.Attribute("urn:oid:1.2.752.29.4.13"); got != "196902291111" {
		t.Errorf("personal number attribute = %q", got)
	}
	if len(result.SignedDocuments) != 1 {
		t.Fatalf("SignedDocuments = %d, want 1", len(result.SignedDocuments))
	}
	signed := string(result.SignedDocuments[0].Content)
	if !strings.Contains(signed, "<ds:SignatureValue>") {
		t.Error("signed document carries no signature value")
	}
	if !strings.Contains(signed, "<Amount>100</Amount>") {
		t.Error("signed document lost the original content")
	}

	// The state was consumed; the same response must not process twice.
	_, err = parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeState, domain.DetailStateNotFound)
}

// TestProcessSignResponse_TwoTransactions runs two transactions side by
// side and checks that responses are bound to their own request only.
func TestProcessSignResponse_TwoTransactions(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)
	ctx := context.Background()

	dataA, envA := createRequest(t, parts, xmlInput(), "owner-a")
	dataB, envB := createRequest(t, parts, xmlInput(), "owner-a")
	if dataA.RequestID == dataB.RequestID {
		t.Fatal("the two transactions share a request id")
	}

	encodedA, relayA := respond(t, responder, envA, signservice.ResponseOptions{})
	encodedB, relayB := respond(t, responder, envB, signservice.ResponseOptions{})

	// Response A presented with transaction B's state: the relay does not
	// match the state's request id.
	_, err := parts.service.ProcessSignResponse(ctx, encodedA, relayA, dataB.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeBadRequest, "")

	if _, err := parts.service.ProcessSignResponse(ctx, encodedA, relayA, dataA.State, "owner-a", nil); err != nil {
		t.Errorf("processing response A against state A: %v", err)
	}
	if _, err := parts.service.ProcessSignResponse(ctx, encodedB, relayB, dataB.State, "owner-a", nil); err != nil {
		t.Errorf("processing response B against state B: %v", err)
	}
}

// TestProcessSignResponse_InResponseToMismatch covers a response whose
// relay matches the state but whose in-response-to id names another
// request.
func TestProcessSignResponse_InResponseToMismatch(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)

	dataA, _ := createRequest(t, parts, xmlInput(), "owner-a")
	_, envB := createRequest(t, parts, xmlInput(), "owner-a")

	// Answer request B but post it back under transaction A's relay id.
	encoded, relay := respond(t, responder, envB, signservice.ResponseOptions{RelayState: dataA.RequestID})

	_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, dataA.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeBadRequest, "")
}

func TestProcessSignResponse_BadEncoding(t *testing.T) {
	parts := newTestService(t)
	data, _ := createRequest(t, parts, xmlInput(), "owner-a")

	_, err := parts.service.ProcessSignResponse(context.Background(), "not base64!", data.RequestID, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProtocol, "")
}

// TestProcessSignResponse_UserCancel maps a user-cancel status to the
// dedicated terminal signal.
func TestProcessSignResponse_UserCancel(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{Cancel: true})

	_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, data.State, "owner-a", nil)
	if !IsUserCancelled(err) {
		t.Fatalf("error = %v, want the user-cancel signal", err)
	}
	var cancelled *domain.SigningCancelledError
	if errors.As(err, &cancelled) && cancelled.RequestID != data.RequestID {
		t.Errorf("RequestID = %q, want %q", cancelled.RequestID, data.RequestID)
	}
}

// TestProcessSignResponse_ErrorStatus carries the provider's result codes
// through verbatim.
func TestProcessSignResponse_ErrorStatus(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{
		ErrorMajor:   protocol.ResultMajorResponderError,
		ErrorMinor:   "urn:example:minor",
		ErrorMessage: "the HSM is on fire",
	})

	_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, data.State, "owner-a", nil)
	status, ok := AsErrorStatus(err)
	if !ok {
		t.Fatalf("error = %v, want an error-status signal", err)
	}
	if status.Major != protocol.ResultMajorResponderError ||
		status.Minor != "urn:example:minor" ||
		status.Message != "the HSM is on fire" {
		t.Errorf("status = %+v", status)
	}
	if status.RequestID != data.RequestID {
		t.Errorf("RequestID = %q", status.RequestID)
	}
}

// TestProcessSignResponse_WrongOwner verifies an ownership mismatch is
// indistinguishable from a missing state and leaves the state intact.
func TestProcessSignResponse_WrongOwner(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)
	ctx := context.Background()

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})

	_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-b", nil)
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeAccessDenied {
		t.Fatalf("error = %v, want access-denied", err)
	}
	if integrationErr.Message != domain.StateNotFoundError().Message {
		t.Errorf("Message = %q, must read exactly like a missing state", integrationErr.Message)
	}

	// The denied attempt must not burn the state.
	if _, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil); err != nil {
		t.Errorf("the rightful owner could not process after a denied attempt: %v", err)
	}
}

// TestProcessSignResponse_AuthnContext checks that only requested or
// explicitly allow-listed contexts pass.
func TestProcessSignResponse_AuthnContext(t *testing.T) {
	p := defaultTestPolicy()
	p.AllowedAuthnContexts = []string{"http://id.elegnamnden.se/loa/1.0/loa4"}
	parts := newTestService(t, p)
	responder := signservice.New(t)
	ctx := context.Background()

	// An unrequested, unlisted context is rejected.
	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{
		AuthnContextClassRef: "http://id.elegnamnden.se/loa/1.0/loa2",
	})
	_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailInvalidAuthnContext)

	// An allow-listed context passes even though it was not requested.
	data, env = createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay = respond(t, responder, env, signservice.ResponseOptions{
		AuthnContextClassRef: "http://id.elegnamnden.se/loa/1.0/loa4",
	})
	result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	if err != nil {
		t.Fatalf("ProcessSignResponse: %v", err)
	}
	if result.AuthnContextRef != "http://id.elegnamnden.se/loa/1.0/loa4" {
		t.Errorf("AuthnContextRef = %q", result.AuthnContextRef)
	}
}

func TestProcessSignResponse_AuthnServiceMismatch(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{
		AuthnServiceID: "https://rogue-idp.example",
	})

	_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailInvalidResponse)
}

func TestProcessSignResponse_MissingSignerAssertionInfo(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{OmitSignerAssertionInfo: true})

	_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProtocol, "")
}

// TestProcessSignResponse_AssertionHandling covers assertion selection:
// a required assertion must be delivered, and with several delivered the
// referenced one must be found.
func TestProcessSignResponse_AssertionHandling(t *testing.T) {
	p := defaultTestPolicy()
	p.RequireSignerAssertion = true
	parts := newTestService(t, p)
	responder := signservice.New(t)
	ctx := context.Background()

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{OmitAssertions: true})
	_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailInvalidResponse)

	// Several assertions: the referenced one is picked.
	data, env = createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay = respond(t, responder, env, signservice.ResponseOptions{ExtraAssertion: true})
	result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a",
		&ProcessingOptions{ReturnAssertion: true})
	if err != nil {
		t.Fatalf("ProcessSignResponse: %v", err)
	}
	if len(result.Assertion) == 0 {
		t.Fatal("no assertion was returned")
	}
	if !strings.Contains(string(result.Assertion), result.AssertionReference) {
		t.Error("the returned assertion is not the referenced one")
	}
}

// TestProcessSignResponse_FreshnessWindow drives the authentication
// instant across both edges of the freshness window. With the request at
// t=100s, the response at t=200s and a 10s clock skew, instants at 90s and
// 210s are the last accepted ones on each side.
func TestProcessSignResponse_FreshnessWindow(t *testing.T) {
	p := defaultTestPolicy()
	p.Stateless = true
	p.AllowedClockSkew = 10 * time.Second
	parts := newTestService(t, p)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	requestTime := data.State.State.RequestTime
	responseTime := requestTime.Add(100 * time.Second)

	tests := []struct {
		name    string
		instant time.Time
		ok      bool
	}{
		{"instant just before the window", requestTime.Add(-11 * time.Second), false},
		{"instant on the lower edge", requestTime.Add(-10 * time.Second), true},
		{"instant on the upper edge", responseTime.Add(10 * time.Second), true},
		{"instant just after the window", responseTime.Add(11 * time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, relay := respond(t, responder, env, signservice.ResponseOptions{
				ResponseTime: responseTime,
				AuthnInstant: tt.instant,
			})
			_, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, data.State, "owner-a", nil)
			if tt.ok && err != nil {
				t.Errorf("ProcessSignResponse: %v", err)
			}
			if !tt.ok {
				wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailInvalidResponse)
			}
		})
	}
}

// TestProcessSignResponse_StrictRequiredAttribute verifies strict
// processing of required certificate attributes.
func TestProcessSignResponse_StrictRequiredAttribute(t *testing.T) {
	p := defaultTestPolicy()
	p.StrictProcessing = true
	parts := newTestService(t, p)
	responder := signservice.New(t)
	ctx := context.Background()

	input := xmlInput()
	input.CertificateRequirements.AttributeMappings = []domain.CertAttributeMapping{{
		Sources:         []string{"urn:oid:1.2.752.29.4.13"},
		DestinationType: "rdn",
		DestinationName: "2.5.4.5",
		Required:        true,
	}}
	data, env := createRequest(t, parts, input, "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})
	if _, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil); err != nil {
		t.Fatalf("a delivered source attribute must satisfy the mapping: %v", err)
	}

	input = xmlInput()
	input.CertificateRequirements.AttributeMappings = []domain.CertAttributeMapping{{
		Sources:         []string{"urn:oid:1.2.752.29.4.9"}, // never delivered
		DestinationType: "rdn",
		DestinationName: "2.5.4.6",
		Required:        true,
	}}
	data, env = createRequest(t, parts, input, "owner-a")
	encoded, relay = respond(t, responder, env, signservice.ResponseOptions{})
	_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailAttributeMismatch)
}

// TestProcessSignResponse_SignMessageProof covers the display-proof
// checks around a must-show sign message.
func TestProcessSignResponse_SignMessageProof(t *testing.T) {
	ctx := context.Background()
	signMessageInput := func() *domain.SignRequestInput {
		in := xmlInput()
		in.SignMessageParameters = &domain.SignMessageParameters{
			Content:  []byte("You are signing the contract."),
			MustShow: true,
		}
		return in
	}

	t.Run("proof delivered", func(t *testing.T) {
		p := defaultTestPolicy()
		p.StrictProcessing = true
		parts := newTestService(t, p)
		responder := signservice.New(t)

		data, env := createRequest(t, parts, signMessageInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})
		result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
		if err != nil {
			t.Fatalf("ProcessSignResponse: %v", err)
		}
		if !result.SignMessageDisplayed {
			t.Error("SignMessageDisplayed = false")
		}
	})

	t.Run("missing proof is fatal when the assertion is required", func(t *testing.T) {
		p := defaultTestPolicy()
		p.RequireSignerAssertion = true
		parts := newTestService(t, p)
		responder := signservice.New(t)

		data, env := createRequest(t, parts, signMessageInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{OmitSignMessageDigest: true})
		_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
		wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailSignMessage)
	})

	t.Run("missing proof is tolerated under a lenient policy", func(t *testing.T) {
		parts := newTestService(t)
		responder := signservice.New(t)

		data, env := createRequest(t, parts, signMessageInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{OmitSignMessageDigest: true})
		result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
		if err != nil {
			t.Fatalf("ProcessSignResponse: %v", err)
		}
		if result.SignMessageDisplayed {
			t.Error("SignMessageDisplayed = true without a proof")
		}
	})

	t.Run("wrong digest is fatal under strict processing", func(t *testing.T) {
		p := defaultTestPolicy()
		p.StrictProcessing = true
		parts := newTestService(t, p)
		responder := signservice.New(t)

		wrong := sha256.Sum256([]byte("another message entirely"))
		data, env := createRequest(t, parts, signMessageInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{
			SignMessageDigest: protocol.DigestSHA256 + ";" + base64.StdEncoding.EncodeToString(wrong[:]),
		})
		_, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
		wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailSignMessage)
	})
}

// TestProcessSignResponse_AdESDigest checks the certificate-digest claim
// of an advanced signature.
func TestProcessSignResponse_AdESDigest(t *testing.T) {
	ctx := context.Background()
	adesInput := func() *domain.SignRequestInput {
		in := xmlInput()
		in.TbsDocuments[0].AdESRequirement = &domain.AdESRequirement{Format: domain.AdESFormatBES}
		return in
	}

	parts := newTestService(t)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, adesInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})
	result, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	if err != nil {
		t.Fatalf("ProcessSignResponse: %v", err)
	}
	if !strings.Contains(string(result.SignedDocuments[0].Content), `Id="id-`) {
		t.Error("the AdES signature id was not carried into the compiled document")
	}

	data, env = createRequest(t, parts, adesInput(), "owner-a")
	encoded, relay = respond(t, responder, env, signservice.ResponseOptions{TamperAdESDigest: true})
	_, err = parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	wantProcessingError(t, err, domain.ErrCodeProcessing, domain.DetailAdESValidation)
}

// TestProcessSignResponse_SignatureValidation exercises the response
// signature gate: a response signed by a trust anchor passes, one signed
// by an unknown key fails under strict processing and is tolerated with a
// warning under lenient processing.
func TestProcessSignResponse_SignatureValidation(t *testing.T) {
	ctx := context.Background()
	newService := func(t *testing.T, p *domain.PolicyConfiguration) *testServiceParts {
		t.Helper()
		parts := newTestService(t, p)
		// Rebuild with a verifier wired in; newTestService leaves it out.
		service, err := NewIntegrationService(Config{
			PolicyStore:      parts.service.Policies(),
			StateCache:       parts.cache,
			ContentCache:     parts.content,
			ResponseVerifier: signature.NewXMLDsigResponseVerifier(),
		})
		if err != nil {
			t.Fatalf("NewIntegrationService: %v", err)
		}
		parts.service = service
		return parts
	}

	t.Run("trusted signer", func(t *testing.T) {
		responder := signservice.New(t)
		p := defaultTestPolicy()
		p.StrictProcessing = true
		p.TrustAnchors = []*x509.Certificate{responder.Certificate()}
		parts := newService(t, p)

		data, env := createRequest(t, parts, xmlInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{Sign: true})
		if _, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil); err != nil {
			t.Fatalf("ProcessSignResponse: %v", err)
		}
	})

	t.Run("untrusted signer is fatal under strict processing", func(t *testing.T) {
		responder := signservice.New(t)
		other := signservice.New(t)
		p := defaultTestPolicy()
		p.StrictProcessing = true
		p.TrustAnchors = []*x509.Certificate{other.Certificate()}
		parts := newService(t, p)

		data, env := createRequest(t, parts, xmlInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{Sign: true})
		if _, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil); err == nil {
			t.Fatal("a response signed by an untrusted key must not pass strict processing")
		}
	})

	t.Run("untrusted signer downgrades to a warning under lenient processing", func(t *testing.T) {
		responder := signservice.New(t)
		other := signservice.New(t)
		p := defaultTestPolicy()
		p.TrustAnchors = []*x509.Certificate{other.Certificate()}
		parts := newService(t, p)

		data, env := createRequest(t, parts, xmlInput(), "owner-a")
		encoded, relay := respond(t, responder, env, signservice.ResponseOptions{Sign: true})
		if _, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil); err != nil {
			t.Fatalf("lenient processing must tolerate a failed signature check: %v", err)
		}
	})
}

// TestProcessSignResponse_Reprocessing verifies that processing is a pure
// function of response and state: re-storing the consumed state and
// processing the same response again yields an identical result.
func TestProcessSignResponse_Reprocessing(t *testing.T) {
	parts := newTestService(t)
	responder := signservice.New(t)
	ctx := context.Background()

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})

	// Peek at the stored state before it is consumed.
	stored, err := parts.cache.Get(ctx, data.RequestID, false, "owner-a")
	if err != nil {
		t.Fatalf("cache Get: %v", err)
	}

	first, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	if err != nil {
		t.Fatalf("first ProcessSignResponse: %v", err)
	}

	if err := parts.cache.Put(ctx, data.RequestID, stored, "owner-a", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("cache Put: %v", err)
	}
	second, err := parts.service.ProcessSignResponse(ctx, encoded, relay, data.State, "owner-a", nil)
	if err != nil {
		t.Fatalf("second ProcessSignResponse: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("re-processing the same response against the same state gave a different result")
	}
}

// TestProcessSignResponse_ClientHeldWireHandle processes a response with a
// handle that crossed a transport boundary: only the id and the durable
// encoding survive.
func TestProcessSignResponse_ClientHeldWireHandle(t *testing.T) {
	p := defaultTestPolicy()
	p.Stateless = true
	parts := newTestService(t, p)
	responder := signservice.New(t)

	data, env := createRequest(t, parts, xmlInput(), "owner-a")
	encoded, relay := respond(t, responder, env, signservice.ResponseOptions{})

	wireHandle := &domain.StateHandle{ID: data.State.ID, Encoded: data.State.Encoded}
	result, err := parts.service.ProcessSignResponse(context.Background(), encoded, relay, wireHandle, "owner-a", nil)
	if err != nil {
		t.Fatalf("ProcessSignResponse: %v", err)
	}
	if result.RequestID != data.RequestID {
		t.Errorf("RequestID = %q", result.RequestID)
	}
}
