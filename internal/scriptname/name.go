// Package scriptname implements the script name, type, and tag identifiers
// that hyper-scripter's data model is built on.
package scriptname

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// illegalNamePattern matches whitespace, which is never allowed in a named
// script. Slash placement (leading, trailing, doubled) is checked separately
// in validateNamed.
var illegalNamePattern = regexp.MustCompile(`\s`)

// Kind distinguishes the two variants of ScriptName.
type Kind int

const (
	// KindNamed is a user-chosen, slash-namespaced name.
	KindNamed Kind = iota
	// KindAnonymous is an auto-assigned numeric id living under .anonymous/.
	KindAnonymous
)

// Name is the ScriptName sum type: either Named(string) or Anonymous(uint32).
type Name struct {
	kind  Kind
	named string
	anon  uint32
}

// Named constructs a Named ScriptName, validating it against the naming rules.
func Named(s string) (Name, error) {
	if err := validateNamed(s); err != nil {
		return Name{}, err
	}
	return Name{kind: KindNamed, named: s}, nil
}

// Anonymous constructs an Anonymous ScriptName from its numeric id.
func Anonymous(id uint32) Name {
	return Name{kind: KindAnonymous, anon: id}
}

// Parse accepts either a named string or a display-form anonymous reference
// (".N") and returns the corresponding Name.
func Parse(s string) (Name, error) {
	if rest, ok := strings.CutPrefix(s, "."); ok {
		id, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return Name{}, fmt.Errorf("scriptname: invalid anonymous id %q: %w", s, err)
		}
		return Anonymous(uint32(id)), nil
	}
	return Named(s)
}

// validateNamed enforces spec §3's rules for a Named ScriptName: nonempty,
// no leading/trailing/double slash, no whitespace, not starting with "-" or ".".
func validateNamed(s string) error {
	if s == "" {
		return fmt.Errorf("scriptname: name must not be empty")
	}
	if illegalNamePattern.MatchString(s) {
		return fmt.Errorf("scriptname: name %q must not contain whitespace", s)
	}
	if strings.HasPrefix(s, "/") || strings.HasSuffix(s, "/") {
		return fmt.Errorf("scriptname: name %q must not start or end with '/'", s)
	}
	if strings.Contains(s, "//") {
		return fmt.Errorf("scriptname: name %q must not contain a doubled '/'", s)
	}
	if strings.HasPrefix(s, "-") {
		return fmt.Errorf("scriptname: name %q must not start with '-'", s)
	}
	if strings.HasPrefix(s, ".") {
		return fmt.Errorf("scriptname: name %q must not start with '.'", s)
	}
	return nil
}

// Kind reports whether the name is Named or Anonymous.
func (n Name) Kind() Kind { return n.kind }

// IsAnonymous reports whether n is the Anonymous variant.
func (n Name) IsAnonymous() bool { return n.kind == KindAnonymous }

// AnonymousID returns the numeric id of an Anonymous name. It is only
// meaningful when IsAnonymous() is true.
func (n Name) AnonymousID() uint32 { return n.anon }

// Key returns the canonical display form used as a map/database key:
// the raw name for Named, ".N" for Anonymous.
func (n Name) Key() string {
	if n.kind == KindAnonymous {
		return "." + strconv.FormatUint(uint64(n.anon), 10)
	}
	return n.named
}

// String implements fmt.Stringer as the display form.
func (n Name) String() string { return n.Key() }

// Namespaces splits a Named name on "/" into its namespace segments. An
// Anonymous name has no namespaces.
func (n Name) Namespaces() []string {
	if n.kind == KindAnonymous || n.named == "" {
		return nil
	}
	return strings.Split(n.named, "/")
}

// Equal reports textual equality on the display form.
func (n Name) Equal(other Name) bool { return n.Key() == other.Key() }

// Less implements the ordering from spec §3: Named precedes Anonymous;
// within a variant, lexicographic (Named) or numeric (Anonymous).
func (n Name) Less(other Name) bool {
	if n.kind != other.kind {
		return n.kind == KindNamed
	}
	if n.kind == KindAnonymous {
		return n.anon < other.anon
	}
	return n.named < other.named
}
