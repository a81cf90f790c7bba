// Package canon normalizes free-text ingredient and dish strings into
// comparable canonical terms. Two raw strings name the same ingredient
// exactly when their canonical terms are equal.
package canon

import "strings"

// Term canonicalizes a single raw string: lowercase, fold ё into е,
// replace everything outside [a-zа-я0-9 ] with spaces, collapse runs of
// whitespace and trim.
func Term(raw string) string {
	lowered := strings.ReplaceAll(strings.ToLower(raw), "ё", "е")

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= 'а' && r <= 'я', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Set canonicalizes a list of raw strings into a set of terms.
// Strings that canonicalize to nothing are dropped.
func Set(raw []string) map[string]struct{} {
	set := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		if term := Term(value); term != "" {
			set[term] = struct{}{}
		}
	}
	return set
}

// JoinTerms canonicalizes the values and joins them with single spaces,
// producing one searchable text blob.
func JoinTerms(values []string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if value != "" {
			parts = append(parts, value)
		}
	}
	return Term(strings.Join(parts, " "))
}
