package ports

import (
	"context"
	"errors"
	"time"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/domain"
)

// StateCache is the port interface for server-held session state.
// Implementations must be safe for concurrent use, and Get with
// remove=true must be atomic per id: at most one concurrent caller
// observes the state.
type StateCache interface {
	// Put stores state under id, scoped to ownerID, until expiresAt.
	Put(ctx context.Context, id string, state *domain.SessionState, ownerID string, expiresAt time.Time) error

	// Get retrieves the state stored under id. When remove is true the
	// state is consumed. Returns ErrStateNotFound for unknown or expired
	// ids and ErrStateAccessDenied when the id exists but is owned by a
	// different caller. An ownership mismatch never consumes the state.
	Get(ctx context.Context, id string, remove bool, ownerID string) (*domain.SessionState, error)

	// RemoveExpired drops expired entries and returns how many were
	// removed. Invoked by an external scheduler.
	RemoveExpired(ctx context.Context) int
}

// ErrStateNotFound is returned for an unknown or expired state id.
var ErrStateNotFound = errors.New("state not found")

// ErrStateAccessDenied is returned when a state id exists but belongs to a
// different owner. Callers outside the state manager must present it to
// end users exactly like ErrStateNotFound.
var ErrStateAccessDenied = errors.New("state access denied")
