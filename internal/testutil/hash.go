package testutil

import "vcs-go/internal/checksum"

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
// Matches the checksum format used by the staging area and vault.
func SHA256Hex(data []byte) string {
	return checksum.Bytes(data)
}
