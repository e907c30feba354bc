package dataprocessing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeIdentifier applies NFKC normalization, collapses internal runs of
// whitespace to a single space and trims the result.
func NormalizeIdentifier(s string) string {
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func normalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := NormalizeIdentifier(id); n != "" {
			out = append(out, n)
		}
	}
	return out
}
