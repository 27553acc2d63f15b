// Package storage abstracts where raw bank batch files live. The billing
// engine never talks to a concrete object store directly.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Store reads and writes raw batch files by storage key.
type Store interface {
	UploadBatchFile(ctx context.Context, key string, data []byte) error
	ReadBatchFile(ctx context.Context, key string) ([]byte, error)
}

// SHA256Hex returns the lowercase hex sha256 of the buffer.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
