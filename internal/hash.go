package internal

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FastHash is a non-cryptographic hash for log fingerprints and similar
// identifiers. Never use it where an attacker controls both sides of a
// comparison.
func FastHash(text string) string {
	h := xxhash.Sum64String(text)
	return strconv.FormatUint(h, 16)
}
