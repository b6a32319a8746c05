package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FallbackName is the canonical identity used when a candidate carries no
// usable name at all. Unrelated nameless candidates collapse onto it unless
// distinguished by their source URL.
const FallbackName = "unknown"

var caseFolder = cases.Fold()

// Normalize maps a raw publication name to its canonical identity form:
// NFKC-normalized, case-folded, decorative punctuation treated as word
// breaks, whitespace runs collapsed. The function is total and idempotent;
// an input with no identity-bearing characters normalizes to FallbackName.
func Normalize(raw string) string {
	folded := caseFolder.String(norm.NFKC.String(raw))

	var b strings.Builder
	b.Grow(len(folded))

	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		// Whitespace and punctuation both act as separators
		pendingSpace = true
	}

	normalized := b.String()
	if normalized == "" {
		return FallbackName
	}
	return normalized
}
