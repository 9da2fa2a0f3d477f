//go:build unit

package signmessage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder()
	policy := &domain.PolicyConfiguration{
		Name:                  "test",
		DefaultAuthnServiceID: "https://idp.example",
	}

	msg, err := b.Build(&domain.SignMessageParameters{
		Content:  []byte("You are signing the contract."),
		MustShow: true,
	}, policy)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !msg.MustShow {
		t.Error("MustShow was lost")
	}
	if msg.DisplayEntity != "https://idp.example" {
		t.Errorf("DisplayEntity = %q, want the policy default", msg.DisplayEntity)
	}
	if msg.MimeType != domain.SignMessageMimeText {
		t.Errorf("MimeType = %q, want the text default", msg.MimeType)
	}
	if !bytes.Equal(msg.Message, []byte("You are signing the contract.")) {
		t.Error("message content was altered")
	}
}

func TestBuilder_Build_ExplicitValuesWin(t *testing.T) {
	b := NewBuilder()
	policy := &domain.PolicyConfiguration{Name: "test", DefaultAuthnServiceID: "https://idp.example"}

	msg, err := b.Build(&domain.SignMessageParameters{
		Content:       []byte("msg"),
		DisplayEntity: "https://other-idp.example",
		MimeType:      domain.SignMessageMimeMarkdown,
	}, policy)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if msg.DisplayEntity != "https://other-idp.example" {
		t.Errorf("DisplayEntity = %q", msg.DisplayEntity)
	}
	if msg.MimeType != domain.SignMessageMimeMarkdown {
		t.Errorf("MimeType = %q", msg.MimeType)
	}
}

func TestBuilder_Build_NilParameters(t *testing.T) {
	b := NewBuilder()
	msg, err := b.Build(nil, &domain.PolicyConfiguration{Name: "test"})
	if err != nil || msg != nil {
		t.Errorf("Build(nil) = %v, %v; want nil, nil", msg, err)
	}
}

func TestBuilder_Build_EmptyContent(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(&domain.SignMessageParameters{}, &domain.PolicyConfiguration{Name: "test"})

	var integrationErr *domain.IntegrationError
	if !errors.As(err, &integrationErr) || integrationErr.Code != domain.ErrCodeValidation {
		t.Errorf("Build with empty content = %v, want validation error", err)
	}
}

// TestBuilder_Build_RefusesEncryptionDowngrade verifies the builder fails
// instead of sending a plaintext message when encryption is demanded.
func TestBuilder_Build_RefusesEncryptionDowngrade(t *testing.T) {
	b := NewBuilder()
	params := &domain.SignMessageParameters{Content: []byte("msg")}

	policyRequires := &domain.PolicyConfiguration{
		Name:                 "test",
		EncryptionParameters: domain.EncryptionParameters{Required: true},
	}
	if _, err := b.Build(params, policyRequires); err == nil {
		t.Error("policy-required encryption must not be downgraded")
	}

	params.RequireEncryption = true
	if _, err := b.Build(params, &domain.PolicyConfiguration{Name: "test"}); err == nil {
		t.Error("caller-required encryption must not be downgraded")
	}
}
