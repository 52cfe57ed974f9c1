// Package cache stores rendered export bundles so repeated downloads of the
// same package skip XML rendering and zipping.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// ErrUnavailable is returned when the cache backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// keyPrefix namespaces advisor keys in a shared Redis.
const keyPrefix = "sfadvisor:bundle:"

// Cache is a byte cache with per-entry expiry.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error
}

// BundleKey derives the cache key of an export bundle. Module contents are
// part of the key so catalog edits never serve a stale bundle.
func BundleKey(apiVersion, domainName, industry string, modules []catalog.Module, sel metadata.Selection) (string, error) {
	h := sha256.New()
	for _, part := range []string{apiVersion, domainName, industry} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	if err := json.NewEncoder(h).Encode(modules); err != nil {
		return "", fmt.Errorf("bundle key: %w", err)
	}
	for _, k := range metadata.Kinds {
		if sel.Includes(k) {
			h.Write([]byte(k))
		}
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
