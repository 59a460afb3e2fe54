// Package checksum computes the content hash recorded in the ledger.
package checksum

import (
	"crypto/md5" // nolint: gosec
	"encoding/hex"
	"strings"
)

// Size is the length of a hash returned by Hash.
const Size = md5.Size * 2

// Hash returns the lowercase hex MD5 digest of content with leading and
// trailing whitespace removed. It is used for drift detection only.
func Hash(content string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(content))) // nolint: gosec
	return hex.EncodeToString(sum[:])
}

// Equal reports whether content hashes to h.
func Equal(content, h string) bool {
	return Hash(content) == h
}
