package util

import (
	"strings"
	"unicode"
)

// ExtractHashtags pulls unique #tags out of a caption, lowercased and
// without the leading '#', in order of first appearance.
func ExtractHashtags(content string) []string {
	tags := []string{}
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "#") || len(word) < 2 {
			continue
		}
		tag := strings.TrimFunc(strings.TrimPrefix(word, "#"), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		tag = strings.ToLower(tag)
		if tag == "" || len(tag) > 100 || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// NormalizeTags trims, lowercases, strips a leading '#' and de-duplicates.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool)
	for _, t := range in {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
