package policy

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// policyFile is the on-disk policy document. YAML and JSON are both
// accepted (JSON is a YAML subset).
type policyFile struct {
	DefaultPolicy string                      `yaml:"defaultPolicy"`
	Policies      map[string]policyFileEntry  `yaml:"policies"`
}

type policyFileEntry struct {
	SignRequesterID        string   `yaml:"signRequesterId"`
	DefaultDestinationURL  string   `yaml:"defaultDestinationUrl"`
	DefaultReturnURL       string   `yaml:"defaultReturnUrl"`
	DefaultSignServiceID   string   `yaml:"defaultSignServiceId"`
	DefaultAuthnServiceID  string   `yaml:"defaultAuthnServiceId"`
	DefaultAuthnContextRef string   `yaml:"defaultAuthnContextRef"`
	SignatureAlgorithm     string   `yaml:"signatureAlgorithm"`
	DefaultCertificateType string   `yaml:"defaultCertificateType"`
	StrictProcessing       bool     `yaml:"strictProcessing"`
	RequireSignerAssertion bool     `yaml:"requireSignerAssertion"`
	AllowedClockSkew       string   `yaml:"allowedClockSkew"`
	StateValidity          string   `yaml:"stateValidity"`
	Stateless              bool     `yaml:"stateless"`
	TrustAnchorFiles       []string `yaml:"trustAnchorFiles"`
	AllowedAuthnContexts   []string `yaml:"allowedAuthnContexts"`

	Encryption struct {
		Required                bool   `yaml:"required"`
		DataEncryptionAlgorithm string `yaml:"dataEncryptionAlgorithm"`
		KeyTransportAlgorithm   string `yaml:"keyTransportAlgorithm"`
	} `yaml:"encryption"`
}

// FilePolicyStore loads policies from a YAML or JSON file. Refresh reloads
// the file and swaps the policy set atomically; trust anchors are read
// from the PEM files referenced by the policy document, resolved relative
// to the policy file.
type FilePolicyStore struct {
	path   string
	logger *zap.Logger

	mu          sync.RWMutex
	policies    map[string]*domain.PolicyConfiguration
	defaultName string
}

// FileOption configures a FilePolicyStore.
type FileOption func(*FilePolicyStore)

// WithLogger attaches a logger for refresh events.
func WithLogger(logger *zap.Logger) FileOption {
	return func(s *FilePolicyStore) { s.logger = logger }
}

// NewFilePolicyStore creates a store for the given policy file. Call Load
// before first use.
func NewFilePolicyStore(path string, opts ...FileOption) *FilePolicyStore {
	s := &FilePolicyStore{
		path:        path,
		policies:    make(map[string]*domain.PolicyConfiguration),
		defaultName: DefaultPolicyName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads and parses the policy file. This should be called during
// initialization.
func (s *FilePolicyStore) Load() error {
	return s.Refresh(context.Background())
}

// Refresh reloads the policy file and swaps the policy set atomically.
// On error the previously loaded policies stay in effect.
func (s *FilePolicyStore) Refresh(ctx context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse policy file: %w", err)
	}
	if len(file.Policies) == 0 {
		return fmt.Errorf("policy file %s defines no policies", s.path)
	}

	baseDir := filepath.Dir(s.path)
	policies := make(map[string]*domain.PolicyConfiguration, len(file.Policies))
	for name, entry := range file.Policies {
		p, err := entry.toPolicy(name, baseDir)
		if err != nil {
			return fmt.Errorf("policy %q: %w", name, err)
		}
		policies[name] = p
	}

	defaultName := file.DefaultPolicy
	if defaultName == "" {
		defaultName = DefaultPolicyName
	}

	s.mu.Lock()
	s.policies = policies
	s.defaultName = defaultName
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("loaded signing policies",
			zap.String("path", s.path),
			zap.Int("count", len(policies)),
			zap.String("default", defaultName))
	}
	return nil
}

func (e policyFileEntry) toPolicy(name, baseDir string) (*domain.PolicyConfiguration, error) {
	skew, err := parseOptionalDuration(e.AllowedClockSkew)
	if err != nil {
		return nil, fmt.Errorf("allowedClockSkew: %w", err)
	}
	validity, err := parseOptionalDuration(e.StateValidity)
	if err != nil {
		return nil, fmt.Errorf("stateValidity: %w", err)
	}

	var anchors []*x509.Certificate
	for _, file := range e.TrustAnchorFiles {
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		certs, err := loadPEMCertificates(file)
		if err != nil {
			return nil, fmt.Errorf("trust anchor %s: %w", file, err)
		}
		anchors = append(anchors, certs...)
	}

	p := &domain.PolicyConfiguration{
		Name:                   name,
		SignRequesterID:        e.SignRequesterID,
		DefaultDestinationURL:  e.DefaultDestinationURL,
		DefaultReturnURL:       e.DefaultReturnURL,
		DefaultSignServiceID:   e.DefaultSignServiceID,
		DefaultAuthnServiceID:  e.DefaultAuthnServiceID,
		DefaultAuthnContextRef: e.DefaultAuthnContextRef,
		SignatureAlgorithm:     e.SignatureAlgorithm,
		DefaultCertificateType: e.DefaultCertificateType,
		EncryptionParameters: domain.EncryptionParameters{
			Required:                e.Encryption.Required,
			DataEncryptionAlgorithm: e.Encryption.DataEncryptionAlgorithm,
			KeyTransportAlgorithm:   e.Encryption.KeyTransportAlgorithm,
		},
		StrictProcessing:       e.StrictProcessing,
		RequireSignerAssertion: e.RequireSignerAssertion,
		AllowedClockSkew:       skew,
		StateValidity:          validity,
		Stateless:              e.Stateless,
		TrustAnchors:           anchors,
		AllowedAuthnContexts:   e.AllowedAuthnContexts,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func loadPEMCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var certs []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return certs, nil
}

// ByName returns the policy with the given name; empty resolves to the
// file's default policy.
func (s *FilePolicyStore) ByName(name string) (*domain.PolicyConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.defaultName
	}
	p, ok := s.policies[name]
	if !ok {
		return nil, domain.PolicyNotFoundError(name)
	}
	return p, nil
}

// Names returns the names of all configured policies, sorted.
func (s *FilePolicyStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ensure FilePolicyStore implements ports.PolicyStore
var _ ports.PolicyStore = (*FilePolicyStore)(nil)
