package rolematch

import (
	"strings"
	"unicode"
)

// Matcher decides whether a creator tag satisfies a free-text role title.
type Matcher struct {
	table SynonymTable
	// index maps a normalized term key to its position in table.Categories
	index map[string]int
	terms [][][]string
}

var defaultMatcher = NewMatcher(DefaultTable())

// Default returns the matcher backed by DefaultTable.
func Default() *Matcher {
	return defaultMatcher
}

// NewMatcher indexes table for lookups.
func NewMatcher(table SynonymTable) *Matcher {
	m := &Matcher{
		table: table,
		index: make(map[string]int),
		terms: make([][][]string, len(table.Categories)),
	}
	for i, c := range table.Categories {
		for _, term := range c.Terms {
			key := termKey(term)
			if key == "" {
				continue
			}
			if _, taken := m.index[key]; !taken {
				m.index[key] = i
			}
			m.terms[i] = append(m.terms[i], tokenize(term))
		}
	}
	return m
}

// Version returns the version of the table the matcher was built from.
func (m *Matcher) Version() int {
	return m.table.Version
}

// Category returns the category name a creator tag belongs to, if any.
func (m *Matcher) Category(tag string) (string, bool) {
	i, ok := m.index[termKey(tag)]
	if !ok {
		return "", false
	}
	return m.table.Categories[i].Name, true
}

// Match reports whether creatorTag satisfies roleTitle. It never fails: an
// unmatched pair simply returns false.
func (m *Matcher) Match(creatorTag, roleTitle string) bool {
	tag := normalize(creatorTag)
	title := normalize(roleTitle)
	if tag == title {
		return true
	}
	if tag == "" || title == "" {
		return false
	}

	if i, ok := m.index[termKey(tag)]; ok {
		titleTokens := tokenize(title)
		for _, seq := range m.terms[i] {
			if containsSequence(titleTokens, seq) {
				return true
			}
		}
		return false
	}

	return strings.Contains(title, tag) || strings.Contains(tag, title)
}

// MatchingTags returns the tags in tags that satisfy roleTitle, in input order.
func (m *Matcher) MatchingTags(tags []string, roleTitle string) []string {
	var matched []string
	for _, tag := range tags {
		if m.Match(tag, roleTitle) {
			matched = append(matched, tag)
		}
	}
	return matched
}

// RolesMatch matches with the default synonym table.
func RolesMatch(creatorTag, roleTitle string) bool {
	return defaultMatcher.Match(creatorTag, roleTitle)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// termKey collapses separators so "content_creator" and "Content Creator" share a key.
func termKey(s string) string {
	return strings.Join(tokenize(normalize(s)), " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsSequence(tokens, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(tokens) {
		return false
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		ok := true
		for j, want := range seq {
			if !tokenEqual(tokens[i+j], want) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// tokenEqual tolerates a plural suffix on the title side ("photographers").
func tokenEqual(got, want string) bool {
	return got == want || got == want+"s" || got == want+"es"
}
