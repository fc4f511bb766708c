// Package tagselector implements the tag-selector algebra used to filter a
// script repository by tag (spec §4.1).
package tagselector

import (
	"fmt"
	"strings"

	"github.com/runger/hyperscripter/internal/scriptname"
)

const (
	mandatorySuffix = "!"
	appendPrefix    = "+"
)

// Control is a single `[^]tag` entry within a Selector: allow (plain tag)
// or deny (`^tag`).
type Control struct {
	Tag   scriptname.Tag
	Allow bool
}

// ParseControl parses one comma-separated entry of a selector string.
func ParseControl(s string) (Control, error) {
	allow := true
	if rest, ok := strings.CutPrefix(s, "^"); ok {
		s = rest
		allow = false
	}
	tag, err := scriptname.NewSelectorTag(s)
	if err != nil {
		return Control{}, err
	}
	return Control{Tag: tag, Allow: allow}, nil
}

// Selector is an ordered list of Controls plus append/mandatory modifiers
// (spec §4.1).
type Selector struct {
	Controls  []Control
	Append    bool
	Mandatory bool
}

// Parse parses a single selector string: optional leading "+" (append),
// comma-separated controls, optional trailing "!" (mandatory).
func Parse(s string) (Selector, error) {
	append_ := false
	if rest, ok := strings.CutPrefix(s, appendPrefix); ok {
		s = rest
		append_ = true
	}
	mandatory := false
	if rest, ok := strings.CutSuffix(s, mandatorySuffix); ok {
		s = rest
		mandatory = true
	}

	parts := strings.Split(s, ",")
	controls := make([]Control, 0, len(parts))
	for _, p := range parts {
		ctrl, err := ParseControl(p)
		if err != nil {
			return Selector{}, fmt.Errorf("tagselector: %w", err)
		}
		controls = append(controls, ctrl)
	}
	if len(controls) == 0 {
		return Selector{}, fmt.Errorf("tagselector: empty selector %q", s)
	}
	return Selector{Controls: controls, Append: append_, Mandatory: mandatory}, nil
}

// Select evaluates the selector against a tag set, per spec §4.1: iterate
// controls in order, and whenever one matches (tag == all or tag in set),
// set pass to that control's Allow (later controls override earlier). The
// zero value (no control matched) is reported via the bool return.
func (s Selector) Select(tags scriptname.TagSet) (pass bool, matched bool) {
	for _, ctrl := range s.Controls {
		if ctrl.Tag.MatchAll() || tags.Contains(ctrl.Tag) {
			pass = ctrl.Allow
			matched = true
		}
	}
	return pass, matched
}

// String renders the selector back to its textual form.
func (s Selector) String() string {
	var b strings.Builder
	if s.Append {
		b.WriteString(appendPrefix)
	}
	for i, c := range s.Controls {
		if i > 0 {
			b.WriteByte(',')
		}
		if !c.Allow {
			b.WriteByte('^')
		}
		b.WriteString(string(c.Tag))
	}
	if s.Mandatory {
		b.WriteString(mandatorySuffix)
	}
	return b.String()
}

// Group is an ordered list of Selectors with the composition rule from
// spec §4.1: a non-append selector replaces the group; an append selector
// is added.
type Group struct {
	selectors []Selector
}

// Push adds a selector to the group, replacing its contents unless the
// selector is an append selector.
func (g *Group) Push(s Selector) {
	if s.Append {
		g.selectors = append(g.selectors, s)
	} else {
		g.selectors = []Selector{s}
	}
}

// Select evaluates the group against a tag set: true iff every mandatory
// selector evaluated to Some(true) and at least one non-mandatory selector
// evaluated to Some(true) — or no non-mandatory selector exists and all
// mandatories pass. `pass` carries forward the last non-mandatory answer
// (spec §4.1, matching the original implementation's behavior).
func (g *Group) Select(tags scriptname.TagSet) bool {
	pass := false
	hasNonMandatory := false
	for _, s := range g.selectors {
		res, matched := s.Select(tags)
		if s.Mandatory {
			if !matched || !res {
				return false
			}
			continue
		}
		hasNonMandatory = true
		if matched {
			pass = res
		}
	}
	if !hasNonMandatory {
		return true
	}
	return pass
}

// Selectors returns the group's current selector list, for inspection/tests.
func (g *Group) Selectors() []Selector {
	return g.selectors
}
