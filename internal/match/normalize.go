// Package match cleans noisy title strings and reduces sets of name variants
// to their shared words.
package match

import (
	"regexp"
	"sort"
	"strings"
)

var (
	separatorReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")
	punctuationRe     = regexp.MustCompile(`[,;!]`)
	bracketRe         = regexp.MustCompile(`\[.*\]`)
	parenRe           = regexp.MustCompile(`\(.*\)`)
	spaceRe           = regexp.MustCompile(`\s+`)
)

// Normalize turns separator punctuation into spaces, removes bracketed and
// parenthesized annotations and collapses whitespace. It is idempotent.
func Normalize(name string) string {
	s := separatorReplacer.Replace(name)
	s = punctuationRe.ReplaceAllString(s, "")
	s = bracketRe.ReplaceAllString(s, "")
	s = parenRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CommonWords reduces a list of name variants to the normalized word
// sequences they share pairwise.
//
// A nil result means no reduction was possible: no pair shares a word, or the
// sorted reduced set equals the sorted, de-duplicated input. An empty input
// yields an empty, non-nil slice. A single name always yields its normalized
// form.
func CommonWords(names []string) []string {
	if len(names) == 0 {
		return []string{}
	}
	if len(names) == 1 {
		return []string{Normalize(names[0])}
	}

	seen := make(map[string]struct{})
	var reduced []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		reduced = append(reduced, s)
	}

	for i, a := range names {
		for j, b := range names {
			if i == j {
				continue
			}
			common := commonTokens(a, b)
			if len(common) == 0 {
				continue
			}
			if n := Normalize(strings.Join(common, " ")); n != "" {
				add(n)
			}
		}
	}

	if len(reduced) == 0 {
		return nil
	}
	sort.Strings(reduced)
	if equalStrings(reduced, dedupSorted(names)) {
		return nil
	}
	return reduced
}

func dedupSorted(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i > 0 && s == out[n-1] {
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}

// commonTokens keeps the lower-cased tokens of a that also occur in b, in the
// order they appear in a.
func commonTokens(a, b string) []string {
	other := make(map[string]struct{})
	for _, tok := range strings.Split(strings.ToLower(b), " ") {
		other[tok] = struct{}{}
	}
	var out []string
	for _, tok := range strings.Split(strings.ToLower(a), " ") {
		if tok == "" {
			continue
		}
		if _, ok := other[tok]; ok {
			out = append(out, tok)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
