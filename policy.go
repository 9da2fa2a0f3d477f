package signintegration

import (
	"github.com/idsec-solutions/signservice-integration-sub001/internal/adapters/driven/policy"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

// Re-export policy types from domain
type (
	PolicyConfiguration  = domain.PolicyConfiguration
	EncryptionParameters = domain.EncryptionParameters
)

// Re-export PolicyStore interface from ports
type PolicyStore = ports.PolicyStore

// Re-export policy store adapters
type (
	InMemoryPolicyStore = policy.InMemoryPolicyStore
	FilePolicyStore     = policy.FilePolicyStore
)

var (
	NewInMemoryPolicyStore = policy.NewInMemoryPolicyStore
	NewFilePolicyStore     = policy.NewFilePolicyStore
)

// DefaultPolicyName is resolved when a caller does not name a policy.
const DefaultPolicyName = policy.DefaultPolicyName
