// Package digest computes the content digests recorded for staged files.
package digest

import (
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// New returns a streaming hasher whose Sum matches File.
func New() hash.Hash {
	return blake3.New()
}

// Hex formats the sum of h.
func Hex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// File computes the BLAKE3 digest of the file at path
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return Hex(h), nil
}
