package search

import (
	"regexp"
	"sort"
	"strings"
)

// Highlight wraps every case-insensitive occurrence of the query's terms in
// text with before and after. Longer terms win where terms overlap.
func Highlight(text, query, before, after string) string {
	return HighlightFunc(text, query, before, after, nil)
}

// HighlightFunc is Highlight with escape applied to each matched and
// unmatched segment of the raw text before the markers are inserted, so
// terms are never matched inside escape sequences. A nil escape leaves
// segments unchanged.
func HighlightFunc(text, query, before, after string, escape func(string) string) string {
	if escape == nil {
		escape = func(s string) string { return s }
	}
	terms := Terms(query)
	if text == "" || len(terms) == 0 {
		return escape(text)
	}
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(escape(text[last:loc[0]]))
		b.WriteString(before)
		b.WriteString(escape(text[loc[0]:loc[1]]))
		b.WriteString(after)
		last = loc[1]
	}
	b.WriteString(escape(text[last:]))
	return b.String()
}
