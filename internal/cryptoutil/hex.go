// Package cryptoutil holds small helpers shared by key handling in config
// and audit signing.
package cryptoutil

import (
	"encoding/hex"
	"fmt"
)

// IsHexString reports whether s consists entirely of hexadecimal characters
// (0-9, a-f, A-F). It returns true for an empty string — callers should check
// length separately when a minimum size is required.
func IsHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// ResolveKey interprets key as raw bytes or hex. A string of 2*minBytes or
// more even hex characters is decoded and must yield at least minBytes;
// anything else is taken as raw bytes and must be at least minBytes long.
func ResolveKey(key string, minBytes int) ([]byte, error) {
	if len(key) >= 2*minBytes && len(key)%2 == 0 && IsHexString(key) {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("key hex decode: %w", err)
		}
		if len(decoded) < minBytes {
			return nil, fmt.Errorf("key hex must decode to at least %d bytes (got %d)", minBytes, len(decoded))
		}
		return decoded, nil
	}
	if len(key) < minBytes {
		return nil, fmt.Errorf("key must be at least %d bytes (got %d)", minBytes, len(key))
	}
	return []byte(key), nil
}
