// Package query implements the textual query grammar that resolves a short
// string typed on the CLI to a concrete script reference (spec §4.3).
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the three ScriptQuery forms.
type Kind int

const (
	// KindFuzz resolves via the fuzzy matcher.
	KindFuzz Kind = iota
	// KindExact resolves by exact ScriptName lookup ("=NAME").
	KindExact
	// KindPrev resolves to the Nth-most-recent script by last_time.
	KindPrev
)

// Query is a parsed ScriptQuery: the resolution strategy plus a trailing
// "bang" flag that permits resolving to a hidden (filtered-out) script.
type Query struct {
	Kind Kind
	Name string // valid for KindFuzz, KindExact
	N    int    // valid for KindPrev; 1-based
	Bang bool
}

// Parse parses a textual query per spec §4.3's grammar: "=NAME" exact,
// "^N"/"-"/"^^^…" previous-Nth, otherwise fuzzy; a trailing "!" marks Bang.
func Parse(s string) (Query, error) {
	bang := false
	if rest, ok := strings.CutSuffix(s, "!"); ok {
		s = rest
		bang = true
	}

	if rest, ok := strings.CutPrefix(s, "="); ok {
		if rest == "" {
			return Query{}, fmt.Errorf("query: exact query must name a script")
		}
		return Query{Kind: KindExact, Name: rest, Bang: bang}, nil
	}

	if s == "-" {
		return Query{Kind: KindPrev, N: 1, Bang: bang}, nil
	}

	if strings.HasPrefix(s, "^") {
		n, err := parsePrev(s)
		if err != nil {
			return Query{}, err
		}
		return Query{Kind: KindPrev, N: n, Bang: bang}, nil
	}

	if s == "" {
		return Query{}, fmt.Errorf("query: empty query")
	}
	return Query{Kind: KindFuzz, Name: s, Bang: bang}, nil
}

// parsePrev parses "^N" or a pure caret run "^^^…" (count = number of carets).
func parsePrev(s string) (int, error) {
	if isAllCarets(s) {
		return len(s), nil
	}
	rest := strings.TrimPrefix(s, "^")
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("query: invalid previous-Nth query %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("query: previous-Nth query %q must be >= 1", s)
	}
	return n, nil
}

func isAllCarets(s string) bool {
	for _, r := range s {
		if r != '^' {
			return false
		}
	}
	return len(s) > 0
}

// EditQuery is the query form accepted by edit-style commands: either a
// normal Query, or "." meaning "create a new anonymous script".
type EditQuery struct {
	NewAnonymous bool
	Query        Query
}

// ParseEdit parses an EditQuery.
func ParseEdit(s string) (EditQuery, error) {
	if s == "." {
		return EditQuery{NewAnonymous: true}, nil
	}
	q, err := Parse(s)
	if err != nil {
		return EditQuery{}, err
	}
	return EditQuery{Query: q}, nil
}

// globSpecialChars are runes that indicate a ListQuery pattern is a glob.
const globSpecialChars = "*"

// ListQuery is the query form accepted by listing commands: either a literal
// name (matched exactly) or a glob pattern ("NAME*pattern").
type ListQuery struct {
	IsGlob  bool
	Pattern *regexp.Regexp // set when IsGlob
	Literal string         // set when !IsGlob
}

// ParseList parses a ListQuery, translating a glob containing "*" into an
// anchored regular expression ("." → "\.", "*" → ".*") per spec §4.3.
func ParseList(s string) (ListQuery, error) {
	if !strings.ContainsAny(s, globSpecialChars) {
		return ListQuery{Literal: s}, nil
	}
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range s {
		switch r {
		case '*':
			b.WriteString(".*")
		case '.':
			b.WriteString(`\.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return ListQuery{}, fmt.Errorf("query: invalid glob %q: %w", s, err)
	}
	return ListQuery{IsGlob: true, Pattern: re}, nil
}

// Match reports whether name satisfies the ListQuery.
func (q ListQuery) Match(name string) bool {
	if q.IsGlob {
		return q.Pattern.MatchString(name)
	}
	return q.Literal == name
}

// FilterQuery splits a combined "NAME=TAGCONTROLS" string into an optional
// exact-name anchor and the remaining tag-control-flow text (spec §4.3's
// filter-query companion grammar, consumed by list/tag commands).
type FilterQuery struct {
	Name    string // "" if absent
	HasName bool
	Tags    string // raw tag-control text, parsed by package tagselector
}

// ParseFilter splits s on the first "=" into an optional name and tag text.
func ParseFilter(s string) FilterQuery {
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		return FilterQuery{Name: s[:idx], HasName: true, Tags: s[idx+1:]}
	}
	return FilterQuery{Tags: s}
}
