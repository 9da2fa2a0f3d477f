//go:build unit

package contentcache

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/idsec-solutions/signservice-integration-sub001/internal/core/ports"
)

func TestMemoryContentCache_PutGet(t *testing.T) {
	cache := NewMemoryContentCache()
	cache.Put("ref-1", []byte("document bytes"), "owner-a")

	got, err := cache.Get(context.Background(), "ref-1", "owner-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte("document bytes")) {
		t.Errorf("content = %q", got)
	}
}

func TestMemoryContentCache_NotFound(t *testing.T) {
	cache := NewMemoryContentCache()
	if _, err := cache.Get(context.Background(), "missing", ""); !errors.Is(err, ports.ErrContentNotFound) {
		t.Errorf("Get(missing) = %v, want ErrContentNotFound", err)
	}
}

// TestMemoryContentCache_OwnerIsolation verifies references cannot be
// resolved across caller identities.
func TestMemoryContentCache_OwnerIsolation(t *testing.T) {
	cache := NewMemoryContentCache()
	cache.Put("ref-1", []byte("secret"), "owner-a")

	if _, err := cache.Get(context.Background(), "ref-1", "owner-b"); !errors.Is(err, ports.ErrContentAccessDenied) {
		t.Errorf("Get as wrong owner = %v, want ErrContentAccessDenied", err)
	}
}
