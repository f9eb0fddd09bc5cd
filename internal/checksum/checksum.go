// Package checksum computes the content identity used throughout the repository:
// a lowercase hex SHA-256 digest over the full byte stream.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// chunkSize is the read size used when streaming content through the hash.
const chunkSize = 4096

// Reader streams r through SHA-256 in fixed-size chunks and returns the
// 64-character lowercase hex digest along with the number of bytes read.
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)
	var size int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("hashing content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Bytes returns the SHA-256 checksum of data as a lowercase hex string.
func Bytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Valid reports whether s has the shape of a checksum produced by this package.
func Valid(s string) bool {
	if len(s) != hex.EncodedLen(sha256.Size) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
