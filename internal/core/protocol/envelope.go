package protocol

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
)

// SignRequestEnvelope pairs a SignRequest with its serialized form. The
// serialization happens exactly once, at construction; the raw bytes and
// the parsed message can never drift apart.
type SignRequestEnvelope struct {
	raw []byte
	msg *SignRequest
}

// NewSignRequestEnvelope serializes the message and wraps both forms.
func NewSignRequestEnvelope(msg *SignRequest) (*SignRequestEnvelope, error) {
	raw, err := xml.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal SignRequest: %w", err)
	}
	return &SignRequestEnvelope{raw: raw, msg: msg}, nil
}

// ParseSignRequestEnvelope parses raw XML into an envelope.
func ParseSignRequestEnvelope(raw []byte) (*SignRequestEnvelope, error) {
	var msg SignRequest
	if err := xml.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal SignRequest: %w", err)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &SignRequestEnvelope{raw: cp, msg: &msg}, nil
}

// DecodeSignRequestEnvelope decodes a base64 message as sent over the
// browser POST binding.
func DecodeSignRequestEnvelope(encoded string) (*SignRequestEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode SignRequest: %w", err)
	}
	return ParseSignRequestEnvelope(raw)
}

// Message returns the parsed SignRequest.
func (e *SignRequestEnvelope) Message() *SignRequest { return e.msg }

// Raw returns the serialized XML.
func (e *SignRequestEnvelope) Raw() []byte { return e.raw }

// Base64 returns the serialized XML base64 encoded for the POST binding.
func (e *SignRequestEnvelope) Base64() string {
	return base64.StdEncoding.EncodeToString(e.raw)
}

// SignResponseEnvelope pairs a SignResponse with its serialized form,
// decoded once on construction.
type SignResponseEnvelope struct {
	raw []byte
	msg *SignResponse
}

// NewSignResponseEnvelope serializes the message and wraps both forms.
func NewSignResponseEnvelope(msg *SignResponse) (*SignResponseEnvelope, error) {
	raw, err := xml.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal SignResponse: %w", err)
	}
	return &SignResponseEnvelope{raw: raw, msg: msg}, nil
}

// ParseSignResponseEnvelope parses raw XML into an envelope.
func ParseSignResponseEnvelope(raw []byte) (*SignResponseEnvelope, error) {
	var msg SignResponse
	if err := xml.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal SignResponse: %w", err)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &SignResponseEnvelope{raw: cp, msg: &msg}, nil
}

// DecodeSignResponseEnvelope decodes a base64 message as received over the
// browser POST binding.
func DecodeSignResponseEnvelope(encoded string) (*SignResponseEnvelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode SignResponse: %w", err)
	}
	return ParseSignResponseEnvelope(raw)
}

// Message returns the parsed SignResponse.
func (e *SignResponseEnvelope) Message() *SignResponse { return e.msg }

// Raw returns the serialized XML.
func (e *SignResponseEnvelope) Raw() []byte { return e.raw }

// Base64 returns the serialized XML base64 encoded.
func (e *SignResponseEnvelope) Base64() string {
	return base64.StdEncoding.EncodeToString(e.raw)
}

// Extension returns the SignResponseExtension, or nil.
func (e *SignResponseEnvelope) Extension() *SignResponseExtension {
	if e.msg.OptionalOutputs == nil {
		return nil
	}
	return e.msg.OptionalOutputs.SignResponseExtension
}

// SignTasks returns the response's sign tasks, or nil.
func (e *SignResponseEnvelope) SignTasks() *SignTasks {
	if e.msg.SignatureObject == nil {
		return nil
	}
	return e.msg.SignatureObject.Other.SignTasks
}
