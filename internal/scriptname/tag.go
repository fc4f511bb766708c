package scriptname

import "fmt"

// AllTag is the reserved selector sigil that matches every tag set. It can
// never appear as a literal member of a tag set (spec §3 invariant).
const AllTag = "all"

// Tag is a nonempty identifier obeying the same syntax as a Named ScriptName
// segment (spec §3: "a nonempty identifier matching name rules").
type Tag string

// NewTag validates and constructs a Tag for membership in a script's tag
// set. "all" is rejected here: spec §3's invariant is that a tag set never
// contains the literal "all" sigil. Selector grammar (spec §4.1), where
// "all" is a meaningful control tag, uses NewSelectorTag instead.
func NewTag(s string) (Tag, error) {
	if s == AllTag {
		return "", fmt.Errorf("scriptname: %q is reserved and cannot be used as a tag", AllTag)
	}
	return newTagUnchecked(s)
}

// NewSelectorTag validates and constructs a Tag for use as a tag-selector
// control (spec §4.1), where "all" is a valid sigil matching every tag set
// rather than a forbidden literal.
func NewSelectorTag(s string) (Tag, error) {
	return newTagUnchecked(s)
}

func newTagUnchecked(s string) (Tag, error) {
	if err := validateNamed(s); err != nil {
		return "", fmt.Errorf("scriptname: invalid tag: %w", err)
	}
	if containsSlash(s) {
		return "", fmt.Errorf("scriptname: tag %q must not contain '/'", s)
	}
	return Tag(s), nil
}

func containsSlash(s string) bool {
	for _, r := range s {
		if r == '/' {
			return true
		}
	}
	return false
}

// MatchAll reports whether t is the reserved "all" sigil.
func (t Tag) MatchAll() bool { return string(t) == AllTag }

// TagSet is an unordered collection of tags, keyed by string for set semantics.
type TagSet map[Tag]struct{}

// NewTagSet builds a TagSet from a slice of tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether t is a member of the set, or whether t is the
// reserved "all" selector (which matches every set, per spec §3/§4.1).
func (s TagSet) Contains(t Tag) bool {
	if t.MatchAll() {
		return true
	}
	_, ok := s[t]
	return ok
}

// Slice returns the tags in s as a slice, in unspecified order.
func (s TagSet) Slice() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}
