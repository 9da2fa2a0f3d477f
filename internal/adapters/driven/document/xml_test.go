//go:build unit

package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/beevik/etree"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/protocol"
)

const rsaSHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

func testPolicy() *domain.PolicyConfiguration {
	return &domain.PolicyConfiguration{Name: "test"}
}

func TestXMLProcessor_Supports(t *testing.T) {
	p := NewXMLProcessor()
	if !p.Supports("application/xml") || !p.Supports("text/xml") {
		t.Error("XML MIME types should be supported")
	}
	if p.Supports("application/pdf") {
		t.Error("PDF must not be supported by the XML processor")
	}
}

func TestXMLProcessor_PreProcess(t *testing.T) {
	p := NewXMLProcessor()
	doc := &domain.TbsDocument{
		ID:       "doc-1",
		MimeType: "application/xml",
		Content:  []byte(`<Contract><Amount>100</Amount></Contract>`),
	}

	resolved, err := p.PreProcess(context.Background(), doc, testPolicy(), nil, "")
	if err != nil {
		t.Fatalf("PreProcess: %v", err)
	}
	if resolved.ID != "doc-1" {
		t.Errorf("ID = %q", resolved.ID)
	}

	parsed := etree.NewDocument()
	if err := parsed.ReadFromBytes(resolved.Content); err != nil {
		t.Fatalf("normalized content does not parse: %v", err)
	}
	if parsed.Root().Tag != "Contract" {
		t.Errorf("root = %q", parsed.Root().Tag)
	}
}

func TestXMLProcessor_PreProcess_RejectsMalformedXML(t *testing.T) {
	p := NewXMLProcessor()
	doc := &domain.TbsDocument{
		ID:       "doc-1",
		MimeType: "application/xml",
		Content:  []byte(`<Contract><unclosed>`),
	}

	_, err := p.PreProcess(context.Background(), doc, testPolicy(), nil, "")
	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeValidation {
		t.Fatalf("PreProcess error = %v, want validation error", err)
	}
	if integrationErr.FieldName == "" {
		t.Error("validation error should name the offending field")
	}
}

// TestXMLProcessor_ToBeSigned verifies the to-be-signed payload is a
// ds:SignedInfo whose reference digest matches the document content.
func TestXMLProcessor_ToBeSigned(t *testing.T) {
	p := NewXMLProcessor()
	resolved := &domain.ResolvedDocument{
		ID:       "doc-1",
		MimeType: "application/xml",
		Content:  []byte(`<Contract/>`),
	}

	task, err := p.ToBeSigned(resolved, rsaSHA256, testPolicy())
	if err != nil {
		t.Fatalf("ToBeSigned: %v", err)
	}
	if task.SigType != protocol.SigTypeXML {
		t.Errorf("SigType = %q", task.SigType)
	}

	signedInfo := etree.NewDocument()
	if err := signedInfo.ReadFromBytes(task.ToBeSignedBytes); err != nil {
		t.Fatalf("SignedInfo does not parse: %v", err)
	}
	digestValue := signedInfo.FindElement("//DigestValue")
	if digestValue == nil {
		t.Fatal("SignedInfo carries no DigestValue")
	}
	want := sha256.Sum256(resolved.Content)
	if digestValue.Text() != base64.StdEncoding.EncodeToString(want[:]) {
		t.Error("DigestValue does not match the document digest")
	}
}

func TestXMLProcessor_ToBeSigned_UnsupportedAlgorithm(t *testing.T) {
	p := NewXMLProcessor()
	resolved := &domain.ResolvedDocument{ID: "doc-1", Content: []byte(`<a/>`)}

	_, err := p.ToBeSigned(resolved, "http://www.w3.org/2000/09/xmldsig#rsa-sha1", testPolicy())
	if err == nil {
		t.Error("SHA-1 based algorithm must be rejected")
	}
}

func TestXMLProcessor_ValidateSignedTask(t *testing.T) {
	p := NewXMLProcessor()
	resolved := &domain.ResolvedDocument{ID: "doc-1", Content: []byte(`<a/>`)}

	err := p.ValidateSignedTask(resolved, &protocol.SignTaskData{
		SignTaskID: "doc-1",
		SigType:    protocol.SigTypePDF,
	}, nil, false)
	if err == nil {
		t.Error("wrong signature type must be rejected")
	}

	err = p.ValidateSignedTask(resolved, &protocol.SignTaskData{
		SignTaskID: "doc-1",
		SigType:    protocol.SigTypeXML,
	}, nil, false)
	if err == nil {
		t.Error("missing signature must be rejected")
	}
}

// TestXMLProcessor_ValidateSignedTask_StrictAdES verifies that a requested
// AdES signature without an AdES object fails only under strict processing.
func TestXMLProcessor_ValidateSignedTask_StrictAdES(t *testing.T) {
	p := NewXMLProcessor()
	resolved := &domain.ResolvedDocument{
		ID:              "doc-1",
		Content:         []byte(`<a/>`),
		AdESRequirement: &domain.AdESRequirement{Format: domain.AdESFormatBES},
	}
	task := &protocol.SignTaskData{
		SignTaskID:      "doc-1",
		SigType:         protocol.SigTypeXML,
		AdESType:        domain.AdESFormatBES,
		Base64Signature: &protocol.Base64Signature{Value: []byte("sig")},
	}

	if err := p.ValidateSignedTask(resolved, task, nil, false); err != nil {
		t.Errorf("lenient processing should accept a missing AdES object: %v", err)
	}
	if err := p.ValidateSignedTask(resolved, task, nil, true); err == nil {
		t.Error("strict processing must reject a missing AdES object")
	}
}

func TestXMLProcessor_Compile(t *testing.T) {
	p := NewXMLProcessor()
	policy := testPolicy()
	resolved, err := p.PreProcess(context.Background(), &domain.TbsDocument{
		ID:       "doc-1",
		MimeType: "application/xml",
		Content:  []byte(`<Contract><Amount>100</Amount></Contract>`),
	}, policy, nil, "")
	if err != nil {
		t.Fatalf("PreProcess: %v", err)
	}
	task, err := p.ToBeSigned(resolved, rsaSHA256, policy)
	if err != nil {
		t.Fatalf("ToBeSigned: %v", err)
	}
	task.Base64Signature = &protocol.Base64Signature{Value: []byte("fake-signature")}

	signed, err := p.Compile(resolved, task, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	out := etree.NewDocument()
	if err := out.ReadFromBytes(signed.Content); err != nil {
		t.Fatalf("signed document does not parse: %v", err)
	}
	signature := out.Root().FindElement("Signature")
	if signature == nil {
		t.Fatal("signed document carries no Signature element")
	}
	sigValue := signature.FindElement("SignatureValue")
	if sigValue == nil {
		t.Fatal("Signature carries no SignatureValue")
	}
	if sigValue.Text() != base64.StdEncoding.EncodeToString([]byte("fake-signature")) {
		t.Error("SignatureValue does not match the returned signature")
	}
	// The original content must survive unchanged.
	if out.Root().FindElement("Amount") == nil {
		t.Error("original document content was lost")
	}
	if !bytes.Contains(signed.Content, []byte("SignedInfo")) {
		t.Error("compiled signature carries no SignedInfo")
	}
}
