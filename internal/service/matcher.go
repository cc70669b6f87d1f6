package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// SubstringMatcher matches when the member name occurs anywhere in the drug
// name after Unicode case folding. "aspirin" therefore matches "Aspirin 81 mg
// EC" but also any unrelated name that happens to contain it.
type SubstringMatcher struct{}

// Match implements domain.NameMatcher.
func (SubstringMatcher) Match(drugName, member string) bool {
	if member == "" {
		return false
	}
	// A Caser carries state, so each call gets its own.
	fold := cases.Fold()
	return strings.Contains(fold.String(drugName), fold.String(member))
}

// WordMatcher is a stricter matcher: the member name must appear as a run of
// whole words in the drug name. "st johns wort" matches "St Johns Wort
// extract" but "statin" does not match "nystatin".
type WordMatcher struct{}

// Match implements domain.NameMatcher.
func (WordMatcher) Match(drugName, member string) bool {
	fold := cases.Fold()
	words := strings.FieldsFunc(fold.String(drugName), notWordRune)
	want := strings.FieldsFunc(fold.String(member), notWordRune)
	if len(want) == 0 || len(want) > len(words) {
		return false
	}

	for i := 0; i+len(want) <= len(words); i++ {
		matched := true
		for j := range want {
			if words[i+j] != want[j] {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func containsFold(text, term string) bool {
	return SubstringMatcher{}.Match(text, term)
}
