package content

import (
	"strings"
	"unicode"
	"unicode/utf8"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/normalization"
)

// FlattenDialogue renders turns as "Speaker: text" lines.
func FlattenDialogue(turns []types.DialogueTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSpace(t.Speaker))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(t.Text))
	}
	return b.String()
}

// Coverage splits targets into those found in haystack and those missing.
// Matching is a case-folded substring search; duplicates are dropped.
func Coverage(targets []string, haystack string) (used, missing []string) {
	used, missing = []string{}, []string{}
	folded := normalization.ParseInputString(haystack)
	seen := map[string]bool{}
	for _, t := range targets {
		key := normalization.ParseInputString(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if strings.Contains(folded, key) {
			used = append(used, strings.TrimSpace(t))
		} else {
			missing = append(missing, strings.TrimSpace(t))
		}
	}
	return used, missing
}

// ScrubNames replaces each name in text, case-insensitively, with replacement.
func ScrubNames(text string, names []string, replacement string) string {
	out := text
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = replaceFold(out, n, replacement)
	}
	return strings.Join(strings.Fields(out), " ")
}

// replaceFold replaces whole-word occurrences of old in s, ignoring case.
func replaceFold(s, old, repl string) string {
	lowerS := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	if len(lowerS) != len(s) || len(lowerOld) != len(old) {
		// lowering changed byte lengths; match exactly
		lowerS, lowerOld = s, old
	}
	var b strings.Builder
	i := 0
	for {
		j := strings.Index(lowerS[i:], lowerOld)
		if j < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		start, end := i+j, i+j+len(old)
		if !wordBoundary(s, start, end) {
			next := start + utf8.RuneLen(firstRune(s[start:]))
			b.WriteString(s[i:next])
			i = next
			continue
		}
		b.WriteString(s[i:start])
		b.WriteString(repl)
		i = end
	}
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
