package filter

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultKeywords signal an internship / paid placement announcement.
// Accented and unaccented spellings are listed separately on purpose.
var DefaultKeywords = []string{"pasantia", "pasantía", "rentada", "fcyt"}

// Matcher is a blunt lexical relevance filter over listing titles.
type Matcher struct {
	keywords []string
}

func NewMatcher(keywords []string) *Matcher {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = fold(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		folded = append(folded, kw)
	}
	return &Matcher{keywords: folded}
}

// Matches reports whether the case-folded title contains any keyword.
func (m *Matcher) Matches(title string) bool {
	normalized := fold(title)
	for _, kw := range m.keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// Keywords returns the folded keyword set.
func (m *Matcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	copy(out, m.keywords)
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}
