// Package policy provides PolicyStore adapters: an in-memory store for
// embedding applications and tests, and a file-backed store loading YAML
// or JSON policy documents.
package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// DefaultPolicyName is resolved when a caller does not name a policy.
const DefaultPolicyName = "default"

// InMemoryPolicyStore holds policies seeded from code.
type InMemoryPolicyStore struct {
	mu          sync.RWMutex
	policies    map[string]*domain.PolicyConfiguration
	defaultName string
}

// NewInMemoryPolicyStore creates a store with the given policies. The
// default policy name is DefaultPolicyName unless overridden with
// SetDefaultName.
func NewInMemoryPolicyStore(policies ...*domain.PolicyConfiguration) (*InMemoryPolicyStore, error) {
	s := &InMemoryPolicyStore{
		policies:    make(map[string]*domain.PolicyConfiguration),
		defaultName: DefaultPolicyName,
	}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := s.policies[p.Name]; exists {
			return nil, fmt.Errorf("duplicate policy %q", p.Name)
		}
		s.policies[p.Name] = p
	}
	return s, nil
}

// SetDefaultName changes which policy an empty name resolves to.
func (s *InMemoryPolicyStore) SetDefaultName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultName = name
}

// ByName returns the policy with the given name; empty resolves to the
// default policy name.
func (s *InMemoryPolicyStore) ByName(name string) (*domain.PolicyConfiguration, error) {
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
func (s *InMemoryPolicyStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refresh is a no-op for the in-memory store.
func (s *InMemoryPolicyStore) Refresh(ctx context.Context) error {
	return nil
}

// Ensure InMemoryPolicyStore implements ports.PolicyStore
var _ ports.PolicyStore = (*InMemoryPolicyStore)(nil)
