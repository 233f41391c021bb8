// Package cache provides the lookup cache shared by the data connectors.
// Entries are opaque payloads keyed by source and ticker, and a known
// fetch failure can be cached as a negative entry so a dead ticker is not
// refetched for the duration of its TTL.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the connector-facing cache contract.
type Cache interface {
	// Get returns the payload stored under key. found reports whether the
	// key holds a live entry at all; a found entry with a nil payload is
	// a cached negative, meaning the upstream lookup is known to fail.
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)

	// Set stores payload under key for ttl. A nil payload records a
	// negative entry. ttl <= 0 stores the entry without expiry.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Key builds the canonical cache key for a source and ticker.
func Key(source, ticker string) string {
	return fmt.Sprintf("aperture:%s:%s", source, ticker)
}

// Stored values carry a one-byte tag so a cached negative is
// distinguishable from any real payload.
const (
	tagNegative = 0x00
	tagPayload  = 0x01
)

// encode wraps a payload for storage.
func encode(payload []byte) []byte {
	if payload == nil {
		return []byte{tagNegative}
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, tagPayload)
	return append(out, payload...)
}

// decode unwraps a stored value. A negative entry decodes to nil.
func decode(stored []byte) []byte {
	if len(stored) == 0 || stored[0] == tagNegative {
		return nil
	}
	return stored[1:]
}
