package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// GenerateKey produces a stable cache key from arbitrary parts.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MediaURLKey is the key under which a file's resolved playback URL is
// cached.
func MediaURLKey(fileID string) string {
	return "media:" + GenerateKey(fileID)
}

// PageKey is the key under which a fetched view page snapshot is cached.
func PageKey(fileID string) string {
	return "page:" + GenerateKey(fileID)
}
