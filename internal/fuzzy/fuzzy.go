// Package fuzzy scores candidate script keys against a short query and
// resolves the result to a single winner, or flags ambiguity for the caller
// to disambiguate interactively (spec §4.2).
package fuzzy

import (
	"sort"
	"strings"
	"time"
)

// Tuning constants for the scoring algorithm (spec §4.2).
const (
	// HighThreshold is the minimum score for an unambiguous High result.
	HighThreshold = 60
	// LowThreshold is the minimum score to be considered a candidate at all.
	LowThreshold = 10
	// Ratio is the maximum second-best/best score ratio that still counts
	// as unambiguous.
	Ratio = 0.6
	// Separator is the namespace separator used for prefix-match partitioning.
	Separator = "/"
)

// Key identifies a fuzzy-matchable candidate: its lookup key and the time
// used to break ties (spec §4.2 tie-break rule 5).
type Key interface {
	FuzzKey() string
	LastTime() time.Time
}

// Kind distinguishes the four possible Result shapes.
type Kind int

const (
	// KindNone means no candidate matched at all.
	KindNone Kind = iota
	// KindHigh means one unambiguous winner was found.
	KindHigh
	// KindLow means one low-confidence winner was found.
	KindLow
	// KindMulti means the match is ambiguous and needs disambiguation.
	KindMulti
)

// Result is the outcome of a fuzzy match (spec §4.2).
type Result[T Key] struct {
	Kind Kind

	// Winner holds the matched candidate for KindHigh and KindLow, and the
	// disambiguation anchor for KindMulti.
	Winner T

	// Others holds candidates prefixed by Winner.FuzzKey()+Separator,
	// populated only for KindMulti.
	Others []T

	// StillOthers holds remaining above-LowThreshold candidates that are
	// neither the winner nor prefix-related to it (spec §9 design note c).
	StillOthers []T
}

type scored[T Key] struct {
	item  T
	score int
}

// Match scores every candidate against query and classifies the result per
// spec §4.2's algorithm.
func Match[T Key](query string, candidates []T) Result[T] {
	var zero T
	scored := scoreAll(query, candidates)
	if len(scored) == 0 {
		return Result[T]{Kind: KindNone, Winner: zero}
	}

	sortByScoreThenTieBreak(scored)

	best := scored[0]
	if best.score <= 0 {
		return Result[T]{Kind: KindNone, Winner: zero}
	}

	if len(scored) == 1 {
		return classifySingle(best)
	}

	second := scored[1]
	if best.score >= HighThreshold && float64(second.score)/float64(best.score) < Ratio {
		return Result[T]{Kind: KindHigh, Winner: best.item}
	}

	above := aboveLowThreshold(scored)
	if len(above) == 1 {
		return classifySingle(above[0])
	}
	if len(above) == 0 {
		return Result[T]{Kind: KindNone, Winner: zero}
	}

	return partitionMulti(best, above)
}

func classifySingle[T Key](s scored[T]) Result[T] {
	if s.score >= HighThreshold {
		return Result[T]{Kind: KindHigh, Winner: s.item}
	}
	if s.score >= LowThreshold {
		return Result[T]{Kind: KindLow, Winner: s.item}
	}
	var zero T
	return Result[T]{Kind: KindNone, Winner: zero}
}

func aboveLowThreshold[T Key](scored []scored[T]) []scored[T] {
	out := make([]scored[T], 0, len(scored))
	for _, s := range scored {
		if s.score >= LowThreshold {
			out = append(out, s)
		}
	}
	return out
}

// partitionMulti splits the above-threshold candidates into "others" (those
// prefix-related to the winner along Separator) and "still_others" (the
// rest), per spec §9 design note (c).
func partitionMulti[T Key](best scored[T], above []scored[T]) Result[T] {
	var others, stillOthers []T
	for _, s := range above {
		if s.item.FuzzKey() == best.item.FuzzKey() {
			continue
		}
		if IsPrefix(best.item.FuzzKey(), s.item.FuzzKey(), Separator) {
			others = append(others, s.item)
		} else {
			stillOthers = append(stillOthers, s.item)
		}
	}
	return Result[T]{
		Kind:        KindMulti,
		Winner:      best.item,
		Others:      others,
		StillOthers: stillOthers,
	}
}

// IsPrefix reports whether b equals a, or b starts with a+sep (spec §4.2
// "Prefix helper").
func IsPrefix(a, b, sep string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(b, a+sep)
}

func scoreAll[T Key](query string, candidates []T) []scored[T] {
	out := make([]scored[T], 0, len(candidates))
	for _, c := range candidates {
		if sc, ok := score(query, c.FuzzKey()); ok {
			out = append(out, scored[T]{item: c, score: sc})
		}
	}
	return out
}

// score computes a subsequence match score between query and key. It
// rewards contiguous runs, earlier match positions, and shorter gaps
// between matched characters; an exact substring match yields the maximum
// possible score for the query length (spec §4.2 step 1).
func score(query, key string) (int, bool) {
	if query == "" {
		return 0, false
	}
	q := []rune(strings.ToLower(query))
	k := []rune(strings.ToLower(key))

	if idx := indexOf(k, q); idx >= 0 {
		// Exact substring: maximum score, biased toward matches near the start.
		return exactSubstringScore(len(q), idx), true
	}

	const (
		baseScorePerChar = 10
		contiguousBonus  = 6
		earlyPositionCap = 20
	)

	qi := 0
	total := 0
	lastMatchPos := -1
	firstMatchPos := -1
	for pos, r := range k {
		if qi >= len(q) {
			break
		}
		if r != q[qi] {
			continue
		}
		if firstMatchPos < 0 {
			firstMatchPos = pos
		}
		charScore := baseScorePerChar
		if lastMatchPos >= 0 {
			gap := pos - lastMatchPos - 1
			if gap == 0 {
				charScore += contiguousBonus
			} else {
				// Shorter gaps score higher; cap the penalty.
				penalty := gap
				if penalty > baseScorePerChar-1 {
					penalty = baseScorePerChar - 1
				}
				charScore -= penalty
			}
		}
		total += charScore
		lastMatchPos = pos
		qi++
	}
	if qi < len(q) {
		return 0, false // not a subsequence
	}

	bonus := earlyPositionCap - firstMatchPos
	if bonus > 0 {
		total += bonus
	}
	if total < 0 {
		total = 0
	}
	return total, true
}

func exactSubstringScore(queryLen, idx int) int {
	const maxScore = 100
	s := maxScore - idx
	if s < maxScore/2 {
		s = maxScore / 2
	}
	_ = queryLen
	return s
}

func indexOf(haystack, needle []rune) int {
	hs := string(haystack)
	ns := string(needle)
	return strings.Index(hs, ns)
}

func sortByScoreThenTieBreak[T Key](s []scored[T]) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		ti, tj := s[i].item.LastTime(), s[j].item.LastTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return s[i].item.FuzzKey() < s[j].item.FuzzKey()
	})
}
