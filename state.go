package signintegration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	kflate "github.com/klauspost/compress/flate"
	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// StateEncoder converts session state to and from its durable client-held
// form: JSON, DEFLATE compressed, base64url encoded. The encoding is
// opaque to callers; they return it unchanged with the sign response.
type StateEncoder struct{}

// Encode produces the durable encoding of a session state.
func (StateEncoder) Encode(state *domain.SessionState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal session state: %w", err)
	}
	var buf bytes.Buffer
	w, err := kflate.NewWriter(&buf, kflate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create compressor: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return "", fmt.Errorf("compress session state: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress session state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Any failure is reported as a state format error;
// the input is caller-supplied and untrusted.
func (StateEncoder) Decode(encoded string) (*domain.SessionState, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, domain.StateError(domain.DetailFormatError, "the supplied state could not be decoded")
	}
	r := kflate.NewReader(bytes.NewReader(compressed))
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.StateError(domain.DetailFormatError, "the supplied state could not be decoded")
	}
	var state domain.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, domain.StateError(domain.DetailFormatError, "the supplied state could not be decoded")
	}
	return &state, nil
}

// StateManager creates and resolves session state across the redirect,
// implementing both propagation strategies behind one entry point:
// server-held state lives in the state cache keyed by request id;
// client-held state travels with the caller, embedded in the handle.
type StateManager struct {
	cache    ports.StateCache
	policies ports.PolicyStore
	encoder  StateEncoder
	metrics  ports.MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// StateManagerOption configures a StateManager.
type StateManagerOption func(*StateManager)

// WithStateManagerLogger attaches a logger.
func WithStateManagerLogger(logger *zap.Logger) StateManagerOption {
	return func(m *StateManager) { m.logger = logger }
}

// WithStateManagerMetrics attaches a metrics recorder.
func WithStateManagerMetrics(rec ports.MetricsRecorder) StateManagerOption {
	return func(m *StateManager) { m.metrics = rec }
}

// WithStateManagerClock overrides the time source. Used in tests.
func WithStateManagerClock(now func() time.Time) StateManagerOption {
	return func(m *StateManager) { m.now = now }
}

// NewStateManager creates a state manager. The policy store is needed on
// the resolve path to re-check that a client-held state's policy really is
// configured stateless.
func NewStateManager(cache ports.StateCache, policies ports.PolicyStore, opts ...StateManagerOption) *StateManager {
	m := &StateManager{
		cache:    cache,
		policies: policies,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateState makes the session state survive the redirect. Under a
// stateful policy it is stored in the state cache keyed by the request id;
// under a stateless policy it is embedded in the returned handle, both
// live and in durable encoded form, and nothing is stored.
func (m *StateManager) CreateState(ctx context.Context, state *domain.SessionState, policy *domain.PolicyConfiguration, ownerID string) (*domain.StateHandle, error) {
	if policy.Stateless {
		encoded, err := m.encoder.Encode(state)
		if err != nil {
			return nil, domain.InternalError("encode session state", err)
		}
		return &domain.StateHandle{ID: state.RequestID, State: state, Encoded: encoded}, nil
	}

	expiresAt := m.now().Add(policy.Validity())
	if err := m.cache.Put(ctx, state.RequestID, state, ownerID, expiresAt); err != nil {
		return nil, domain.InternalError("store session state", err)
	}
	return &domain.StateHandle{ID: state.RequestID}, nil
}

// ResolveState turns a state handle back into session state. Server-held
// state is consumed on first successful retrieval. Ownership mismatches
// surface to the caller exactly like a missing state; the distinction is
// logged here and nowhere else.
func (m *StateManager) ResolveState(ctx context.Context, handle *domain.StateHandle, ownerID string) (*domain.SessionState, error) {
	if handle == nil || (handle.ID == "" && !handle.ClientHeld()) {
		return nil, domain.StateError(domain.DetailMissingInputState, "no state was supplied with the response")
	}

	if !handle.ClientHeld() {
		return m.resolveServerHeld(ctx, handle.ID, ownerID)
	}
	return m.resolveClientHeld(handle)
}

func (m *StateManager) resolveServerHeld(ctx context.Context, id, ownerID string) (*domain.SessionState, error) {
	state, err := m.cache.Get(ctx, id, true, ownerID)
	if err == nil {
		m.recordResolution("server", "ok")
		return state, nil
	}
	switch {
	case errors.Is(err, ports.ErrStateAccessDenied):
		// Logged as denied, surfaced as not found.
		m.recordResolution("server", "denied")
		if m.logger != nil {
			m.logger.Warn("state fetch denied: owner mismatch",
				zap.String("request_id", id),
				zap.String("owner_id", ownerID))
		}
		return nil, domain.AccessDeniedError()
	case errors.Is(err, ports.ErrStateNotFound):
		m.recordResolution("server", "not-found")
		return nil, domain.StateNotFoundError()
	default:
		return nil, domain.InternalError("session state lookup failed", err)
	}
}

func (m *StateManager) resolveClientHeld(handle *domain.StateHandle) (*domain.SessionState, error) {
	state := handle.State
	if state == nil {
		decoded, err := m.encoder.Decode(handle.Encoded)
		if err != nil {
			m.recordResolution("client", "format-error")
			return nil, err
		}
		state = decoded
	}
	if handle.ID != "" && handle.ID != state.RequestID {
		m.recordResolution("client", "format-error")
		return nil, domain.StateError(domain.DetailFormatError,
			"the supplied state does not belong to the given id")
	}

	// A client-held token is unauthenticated data. It is honored only when
	// the policy it names is actually configured stateless; otherwise a
	// forged token could bypass server custody of the transaction.
	policy, err := m.policies.ByName(state.PolicyName)
	if err != nil || !policy.Stateless {
		m.recordResolution("client", "policy-error")
		return nil, domain.StateError(domain.DetailPolicyError,
			"the supplied state refers to a policy that does not permit client-held state")
	}

	m.recordResolution("client", "ok")
	return state, nil
}

func (m *StateManager) recordResolution(mode, result string) {
	if m.metrics != nil {
		m.metrics.RecordStateResolution(mode, result)
	}
}
