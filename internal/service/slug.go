package service

import (
	"strings"

	"github.com/rs/xid"
)

// slugSuffixLen is the length of the random part appended to slugs.
const slugSuffixLen = 4

// Slugify lowercases name, collapses every run of characters outside
// [a-z0-9] into a single "-", and trims leading and trailing separators.
// The result may be empty.
func Slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// GenerateSlug returns Slugify(name) plus a short random suffix, e.g.
// "my-awesome-list-k3f9". An empty base yields the suffix alone.
func GenerateSlug(name string) string {
	base := Slugify(name)
	if base == "" {
		return slugSuffix()
	}
	return base + "-" + slugSuffix()
}

// slugSuffix takes the tail of a fresh xid. The tail encodes xid's
// per-process counter, so consecutive calls never repeat.
func slugSuffix() string {
	id := xid.New().String()
	return id[len(id)-slugSuffixLen:]
}
