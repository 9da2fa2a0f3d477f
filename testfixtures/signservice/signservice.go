// Package signservice provides a fake remote signature service for
// integration testing. It parses a SignRequest, simulates authentication of
// a canned user, signs every sign task with its own key and produces the
// SignResponse the engine would receive back over the browser leg.
package signservice

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"sort"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/crewjam/saml"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

// defaultAttributes are delivered for the canned test user unless
// overridden.
var defaultAttributes = map[string]string{
	"urn:oid:1.2.752.29.4.13": "196902291111",
	"urn:oid:2.5.4.42":        "Agda",
	"urn:oid:2.5.4.4":         "Andersson",
}

// signMessageDigestAttribute mirrors the engine's proof attribute name.
const signMessageDigestAttribute = "urn:oid:1.2.752.201.3.14"

// Responder is the fake signature service.
type Responder struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// NewResponder creates a responder with a fresh self-signed certificate.
func NewResponder() (*Responder, error) {
	key, cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	return &Responder{key: key, cert: cert}, nil
}

// New creates a responder for a test, failing the test on error.
func New(t testing.TB) *Responder {
	t.Helper()
	r, err := NewResponder()
	if err != nil {
		t.Fatalf("failed to create fake signature service: %v", err)
	}
	return r
}

// Certificate returns the responder's signing certificate, for use as a
// policy trust anchor.
func (r *Responder) Certificate() *x509.Certificate {
	return r.cert
}

// ResponseOptions steer the synthesized response. The zero value produces
// a valid successful response for the given request.
type ResponseOptions struct {
	// Cancel produces a user-cancel status response.
	Cancel bool

	// ErrorMajor/ErrorMinor/ErrorMessage produce an error status response.
	ErrorMajor   string
	ErrorMinor   string
	ErrorMessage string

	// RelayState overrides the relay state (default: the request id).
	RelayState string

	// ResponseTime overrides the response time (default: now).
	ResponseTime time.Time

	// AuthnInstant overrides the authentication instant (default: now).
	AuthnInstant time.Time

	// AuthnContextClassRef overrides the returned context (default: the
	// first requested one).
	AuthnContextClassRef string

	// AuthnServiceID overrides the authenticating service (default: the
	// identity provider named in the request).
	AuthnServiceID string

	// Attributes overrides the delivered identity attributes.
	Attributes map[string]string

	// OmitAssertions drops the raw assertion list.
	OmitAssertions bool

	// ExtraAssertion delivers an additional unrelated assertion before
	// the referenced one.
	ExtraAssertion bool

	// OmitSignerAssertionInfo drops the whole signer assertion block.
	OmitSignerAssertionInfo bool

	// OmitSignMessageDigest drops the sign-message proof attribute even
	// when the request carried a sign message.
	OmitSignMessageDigest bool

	// SignMessageDigest overrides the proof attribute value.
	SignMessageDigest string

	// TamperAdESDigest corrupts the AdES certificate digest.
	TamperAdESDigest bool

	// Sign envelops the response in an XML signature made with the
	// responder's certificate.
	Sign bool
}

// Respond produces the encoded SignResponse and relay state for a request.
func (r *Responder) Respond(env *protocol.SignRequestEnvelope, opts ResponseOptions) (string, string, error) {
	msg := env.Message()
	relay := opts.RelayState
	if relay == "" {
		relay = msg.RequestID
	}

	if opts.Cancel {
		return encodeStatusResponse(msg.RequestID, protocol.Result{
			ResultMajor: protocol.ResultMajorRequesterError,
			ResultMinor: protocol.ResultMinorUserCancel,
		}, relay)
	}
	if opts.ErrorMajor != "" {
		return encodeStatusResponse(msg.RequestID, protocol.Result{
			ResultMajor:   opts.ErrorMajor,
			ResultMinor:   opts.ErrorMinor,
			ResultMessage: opts.ErrorMessage,
		}, relay)
	}

	ext := msg.OptionalInputs.SignRequestExtension
	if ext == nil {
		return "", "", fmt.Errorf("request has no SignRequestExtension")
	}

	now := time.Now().UTC()
	responseTime := opts.ResponseTime
	if responseTime.IsZero() {
		responseTime = now
	}
	authnInstant := opts.AuthnInstant
	if authnInstant.IsZero() {
		authnInstant = now
	}
	contextRef := opts.AuthnContextClassRef
	if contextRef == "" && ext.CertRequestProperties != nil && len(ext.CertRequestProperties.AuthnContextClassRefs) > 0 {
		contextRef = ext.CertRequestProperties.AuthnContextClassRefs[0]
	}
	authnService := opts.AuthnServiceID
	if authnService == "" {
		authnService = ext.IdentityProvider.Value
	}

	attributes := opts.Attributes
	if attributes == nil {
		attributes = cloneAttributes(defaultAttributes)
	}
	if ext.SignMessage != nil && !opts.OmitSignMessageDigest {
		proof := opts.SignMessageDigest
		if proof == "" {
			digest := crypto.SHA256.New()
			digest.Write(ext.SignMessage.Message)
			proof = protocol.DigestSHA256 + ";" + base64.StdEncoding.EncodeToString(digest.Sum(nil))
		}
		attributes[signMessageDigestAttribute] = proof
	}

	signedTasks, err := r.signTasks(msg, ext.RequestedSignatureAlgorithm, opts.TamperAdESDigest)
	if err != nil {
		return "", "", err
	}

	assertionID := fmt.Sprintf("_%x", time.Now().UnixNano())
	respExt := &protocol.SignResponseExtension{
		Version:      "1.1",
		ResponseTime: responseTime,
		Request:      env.Raw(),
		SignatureCertificateChain: &protocol.CertificateChain{
			Certificates: []protocol.Base64Data{r.cert.Raw},
		},
	}
	if !opts.OmitSignerAssertionInfo {
		info := &protocol.SignerAssertionInfo{
			ContextInfo: protocol.ContextInfo{
				IdentityProvider:      protocol.EntityID{Value: authnService},
				AuthenticationInstant: authnInstant,
				AuthnContextClassRef:  contextRef,
				AuthType:              "saml",
				AssertionRef:          assertionID,
			},
			AttributeStatement: buildAttributeStatement(attributes),
		}
		if !opts.OmitAssertions {
			assertions := &protocol.SAMLAssertions{}
			if opts.ExtraAssertion {
				extra := buildAssertion(fmt.Sprintf("_extra%x", time.Now().UnixNano()),
					authnService, authnInstant, contextRef, nil)
				assertions.Assertions = append(assertions.Assertions, extra)
			}
			assertions.Assertions = append(assertions.Assertions,
				buildAssertion(assertionID, authnService, authnInstant, contextRef, attributes))
			info.SamlAssertions = assertions
		}
		respExt.SignerAssertionInfo = info
	}

	response := &protocol.SignResponse{
		Profile:   protocol.Profile,
		RequestID: msg.RequestID,
		Result:    protocol.Result{ResultMajor: protocol.ResultMajorSuccess},
		OptionalOutputs: &protocol.OptionalOutputs{
			SignResponseExtension: respExt,
		},
		SignatureObject: &protocol.SignatureObject{
			Other: protocol.Other{SignTasks: signedTasks},
		},
	}

	envOut, err := protocol.NewSignResponseEnvelope(response)
	if err != nil {
		return "", "", err
	}
	raw := envOut.Raw()
	if opts.Sign {
		raw, err = r.envelopeSign(raw)
		if err != nil {
			return "", "", err
		}
	}
	return base64.StdEncoding.EncodeToString(raw), relay, nil
}

func encodeStatusResponse(requestID string, result protocol.Result, relay string) (string, string, error) {
	response := &protocol.SignResponse{
		Profile:   protocol.Profile,
		RequestID: requestID,
		Result:    result,
	}
	env, err := protocol.NewSignResponseEnvelope(response)
	if err != nil {
		return "", "", err
	}
	return env.Base64(), relay, nil
}

func (r *Responder) signTasks(msg *protocol.SignRequest, algorithm string, tamperAdES bool) (*protocol.SignTasks, error) {
	requested := msg.InputDocuments.Other.SignTasks
	if requested == nil {
		return nil, fmt.Errorf("request has no sign tasks")
	}
	hash, ok := protocol.HashForSignatureURI(algorithm)
	if !ok {
		return nil, fmt.Errorf("unsupported signature algorithm %q", algorithm)
	}

	out := &protocol.SignTasks{}
	for _, task := range requested.Tasks {
		hasher := hash.New()
		hasher.Write(task.ToBeSignedBytes)
		sig, err := rsa.SignPKCS1v15(rand.Reader, r.key, hash, hasher.Sum(nil))
		if err != nil {
			return nil, fmt.Errorf("sign task %s: %w", task.SignTaskID, err)
		}

		signed := protocol.SignTaskData{
			SignTaskID:      task.SignTaskID,
			SigType:         task.SigType,
			AdESType:        task.AdESType,
			ToBeSignedBytes: task.ToBeSignedBytes,
			Base64Signature: &protocol.Base64Signature{Value: sig},
		}
		if task.AdESType != "" {
			digest := crypto.SHA256.New()
			digest.Write(r.cert.Raw)
			certDigest := digest.Sum(nil)
			if tamperAdES {
				certDigest[0] ^= 0xff
			}
			signed.AdESObject = &protocol.AdESObject{
				SignatureID: "id-" + task.SignTaskID,
				CertificateDigest: &protocol.CertificateDigest{
					Method: protocol.DigestSHA256,
					Value:  certDigest,
				},
			}
		}
		out.Tasks = append(out.Tasks, signed)
	}
	return out, nil
}

// envelopeSign wraps the response in an enveloped XML signature.
func (r *Responder) envelopeSign(raw []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	keyStore := dsig.TLSCertKeyStore(tls.Certificate{
		Certificate: [][]byte{r.cert.Raw},
		PrivateKey:  r.key,
	})
	signingContext := dsig.NewDefaultSigningContext(keyStore)
	signingContext.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")
	signedRoot, err := signingContext.SignEnveloped(doc.Root())
	if err != nil {
		return nil, err
	}
	doc.SetRoot(signedRoot)
	return doc.WriteToBytes()
}

func buildAttributeStatement(attributes map[string]string) *saml.AttributeStatement {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	statement := &saml.AttributeStatement{}
	for _, name := range names {
		statement.Attributes = append(statement.Attributes, saml.Attribute{
			Name:   name,
			Values: []saml.AttributeValue{{Value: attributes[name]}},
		})
	}
	return statement
}

func cloneAttributes(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// buildAssertion produces a minimal assertion document with the given id.
func buildAssertion(id, issuer string, instant time.Time, contextRef string, attributes map[string]string) []byte {
	doc := etree.NewDocument()
	assertion := doc.CreateElement("saml:Assertion")
	assertion.CreateAttr("xmlns:saml", "urn:oasis:names:tc:SAML:2.0:assertion")
	assertion.CreateAttr("ID", id)
	assertion.CreateAttr("Version", "2.0")
	assertion.CreateAttr("IssueInstant", instant.Format(time.RFC3339))

	assertion.CreateElement("saml:Issuer").SetText(issuer)

	authnStatement := assertion.CreateElement("saml:AuthnStatement")
	authnStatement.CreateAttr("AuthnInstant", instant.Format(time.RFC3339))
	authnStatement.CreateElement("saml:AuthnContext").
		CreateElement("saml:AuthnContextClassRef").SetText(contextRef)

	if len(attributes) > 0 {
		statement := assertion.CreateElement("saml:AttributeStatement")
		for name, value := range attributes {
			attr := statement.CreateElement("saml:Attribute")
			attr.CreateAttr("Name", name)
			attr.CreateElement("saml:AttributeValue").SetText(value)
		}
	}

	out, _ := doc.WriteToBytes()
	return out
}

// generateSelfSignedCert creates an RSA key and self-signed certificate
// for the fake service.
func generateSelfSignedCert() (*rsa.PrivateKey, *x509.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName:   "Test Signature Service",
			Organization: []string{"signservice-integration tests"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}
	return key, cert, nil
}
