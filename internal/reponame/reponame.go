// Package reponame derives repository names from task names.
//
// Names are lower-case, use only [a-z0-9-], never contain "--", never start
// or end with a hyphen and are at most MaxLength characters long.
package reponame

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength is the longest repository name GitHub accepts.
	MaxLength = 100

	// TimestampLayout is appended to every derived name.
	TimestampLayout = "20060102150405"

	// SuffixLength is the number of hex characters in a collision suffix.
	SuffixLength = 6

	fallback = "app"
)

// Slug folds s to ASCII, lower-cases it and collapses every run of
// characters outside [a-z0-9] into a single hyphen.
func Slug(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Derive builds the base name for task at now: slug + "-" + UTC timestamp,
// truncated to MaxLength. Equal inputs give equal outputs.
func Derive(task string, now time.Time) string {
	slug := Slug(task)
	if slug == "" {
		slug = fallback
	}
	stamp := now.UTC().Format(TimestampLayout)
	return join(slug, stamp)
}

// WithSuffix appends "-" + suffix to base, truncating base so the result
// stays within MaxLength.
func WithSuffix(base, suffix string) string {
	return join(base, suffix)
}

// RandomSuffix returns SuffixLength lower-case hex characters.
func RandomSuffix() string {
	buf := make([]byte, (SuffixLength+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", SuffixLength)
	}
	return hex.EncodeToString(buf)[:SuffixLength]
}

func join(base, tail string) string {
	room := MaxLength - len(tail) - 1
	if room < 1 {
		return truncate(tail, MaxLength)
	}
	base = truncate(base, room)
	if base == "" {
		return tail
	}
	return base + "-" + tail
}

// truncate cuts s (ASCII by construction) to at most n bytes without
// leaving a trailing hyphen.
func truncate(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, "-")
}
