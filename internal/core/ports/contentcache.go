package ports

import (
	"context"
	"errors"
)

// ContentCache resolves opaque content references to document content.
// Used by document processors during pre-processing; only meaningful when
// the policy is not stateless.
type ContentCache interface {
	// Get returns the content stored under reference, scoped to ownerID.
	// Returns ErrContentNotFound for unknown references and
	// ErrContentAccessDenied when the reference belongs to another owner.
	Get(ctx context.Context, reference string, ownerID string) ([]byte, error)
}

// ErrContentNotFound is returned for an unknown content reference.
var ErrContentNotFound = errors.New("content not found")

// ErrContentAccessDenied is returned when a content reference belongs to a
// different owner.
var ErrContentAccessDenied = errors.New("content access denied")
