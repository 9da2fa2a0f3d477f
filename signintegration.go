// Package signintegration lets a relying application obtain signatures on
// documents by redirecting the end user's browser to a remote signature
// service that authenticates the user and returns a signed result.
//
// The engine works in two phases. CreateSignRequest validates the caller's
// input, merges policy defaults, pre-processes documents through per-format
// processors, generates the request id and assembles the outgoing
// SignRequest message, creating session state that survives the redirect
// (server-held in a state cache, or client-held in encoded form).
// ProcessSignResponse decodes the returned SignResponse, resolves the
// session state and runs a sequence of hard gates - relay binding, status,
// policy re-resolution, signer assertion checks, authentication freshness,
// authentication context membership, sign-message proof and per-document
// signature validation - before any identity or signature is reported as
// trusted.
package signintegration

import (
	"crypto"
	"fmt"
	"sync"
)

// Version is the library version.
const Version = "1.1.0"

var (
	initOnce    sync.Once
	initErr     error
	initialized bool
)

// Initialize performs the one-time setup of the cryptographic subsystems
// the engine depends on. It is idempotent and safe for concurrent use.
// NewIntegrationService calls it; embedding applications that use the
// lower-level pieces directly should call it once at startup.
func Initialize() error {
	initOnce.Do(func() {
		for _, h := range []crypto.Hash{crypto.SHA256, crypto.SHA384, crypto.SHA512} {
			if !h.Available() {
				initErr = fmt.Errorf("required hash function %s is not linked into the binary", h)
				return
			}
		}
		initialized = true
	})
	return initErr
}

// IsInitialized reports whether Initialize has completed successfully.
func IsInitialized() bool {
	return initialized
}
