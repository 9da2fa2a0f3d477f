package ports

import (
	"context"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

// PolicyStore is the port interface to the named policy configurations.
type PolicyStore interface {
	// ByName returns the policy with the given name. An empty name
	// resolves to the store's default policy. Returns a policy-not-found
	// error when no such policy is configured.
	ByName(name string) (*domain.PolicyConfiguration, error)

	// Names returns the names of all configured policies.
	Names() []string

	// Refresh reloads the policies from their source. In-memory stores
	// may treat this as a no-op.
	Refresh(ctx context.Context) error
}
