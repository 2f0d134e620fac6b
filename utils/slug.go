// utils/slug.go
package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/gosimple/slug"
)

const (
	slugMaxLen      = 60
	slugSuffixLen   = 6
	slugSuffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateSlug turns a title into "<base>-<random suffix>": lowercase
// [a-z0-9-], at most 60 chars. The suffix keeps collisions unlikely; the
// caller still retries the insert with a fresh slug when the unique index
// reports a duplicate.
func GenerateSlug(title string) string {
	base := slug.Make(title)
	maxBase := slugMaxLen - slugSuffixLen - 1
	if len(base) > maxBase {
		base = strings.Trim(base[:maxBase], "-")
	}
	if base == "" {
		base = "khatam"
	}
	return base + "-" + randomSuffix(slugSuffixLen)
}

func randomSuffix(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugSuffixChars))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			idx = big.NewInt(int64(i % len(slugSuffixChars)))
		}
		b.WriteByte(slugSuffixChars[idx.Int64()])
	}
	return b.String()
}
