package signintegration

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/document"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/signmessage"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Config wires an IntegrationService. PolicyStore and StateCache are
// mandatory; everything else has a sensible default.
type Config struct {
	// PolicyStore resolves policy names to configurations.
	PolicyStore ports.PolicyStore

	// StateCache holds server-held session state.
	StateCache ports.StateCache

	// ContentCache resolves document content references. Optional; without
	// it every content reference fails input validation.
	ContentCache ports.ContentCache

	// DocumentProcessors handle the per-format document work. Defaults to
	// the XML and PDF processors.
	DocumentProcessors []ports.DocumentProcessor

	// SignMessageBuilder builds the sign message element. Defaults to the
	// plaintext builder.
	SignMessageBuilder ports.SignMessageBuilder

	// ResponseVerifier validates the XML signature on sign responses when
	// the policy carries trust anchors. Optional; without it responses are
	// accepted unverified regardless of trust anchors.
	ResponseVerifier ports.ResponseVerifier

	// Metrics records engine metrics. Optional.
	Metrics ports.MetricsRecorder

	// Logger receives engine logs. Optional.
	Logger *zap.Logger
}

// IntegrationService is the engine facade: CreateSignRequest builds the
// outgoing message and session state, ProcessSignResponse validates and
// unpacks the returned message.
type IntegrationService struct {
	policies   ports.PolicyStore
	processors []ports.DocumentProcessor
	content    ports.ContentCache
	messages   ports.SignMessageBuilder
	verifier   ports.ResponseVerifier
	metrics    ports.MetricsRecorder
	logger     *zap.Logger
	state      *StateManager
	now        func() time.Time
}

// NewIntegrationService creates the engine from a Config.
func NewIntegrationService(cfg Config) (*IntegrationService, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	if cfg.PolicyStore == nil {
		return nil, fmt.Errorf("signintegration: Config.PolicyStore is required")
	}
	if cfg.StateCache == nil {
		return nil, fmt.Errorf("signintegration: Config.StateCache is required")
	}

	s := &IntegrationService{
		policies:   cfg.PolicyStore,
		processors: cfg.DocumentProcessors,
		content:    cfg.ContentCache,
		messages:   cfg.SignMessageBuilder,
		verifier:   cfg.ResponseVerifier,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if s.processors == nil {
		s.processors = document.DefaultRegistry().Processors()
	}
	if s.messages == nil {
		s.messages = signmessage.NewBuilder()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	stateOpts := []StateManagerOption{WithStateManagerLogger(s.logger)}
	if s.metrics != nil {
		stateOpts = append(stateOpts, WithStateManagerMetrics(s.metrics))
	}
	s.state = NewStateManager(cfg.StateCache, cfg.PolicyStore, stateOpts...)

	return s, nil
}

// StateManager exposes the service's state manager, for callers that
// resolve or encode state outside the facade.
func (s *IntegrationService) StateManager() *StateManager {
	return s.state
}

// Policies exposes the policy store.
func (s *IntegrationService) Policies() ports.PolicyStore {
	return s.policies
}

// processorFor selects the document processor for a MIME type.
func (s *IntegrationService) processorFor(mimeType string) (ports.DocumentProcessor, bool) {
	for _, p := range s.processors {
		if p.Supports(mimeType) {
			return p, true
		}
	}
	return nil, false
}

func (s *IntegrationService) recordRequestCreated(policy string, success bool) {
	if s.metrics != nil {
		s.metrics.RecordRequestCreated(policy, success)
	}
}

func (s *IntegrationService) recordResponseProcessed(policy string, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordResponseProcessed(policy, outcome)
	}
}

// IsUserCancelled reports whether err is the user-cancel terminal signal.
func IsUserCancelled(err error) bool {
	var cancelled *domain.SigningCancelledError
	return errors.As(err, &cancelled)
}

// AsErrorStatus extracts the provider error-status terminal signal, if any.
func AsErrorStatus(err error) (*domain.SigningErrorStatus, bool) {
	var status *domain.SigningErrorStatus
	if errors.As(err, &status) {
		return status, true
	}
	return nil, false
}
