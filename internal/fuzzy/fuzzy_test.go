package fuzzy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	key  string
	time time.Time
}

func (i item) FuzzKey() string      { return i.key }
func (i item) LastTime() time.Time { return i.time }

func mk(key string) item { return item{key: key} }

func TestMatch_None_NoSubsequence(t *testing.T) {
	res := Match("xyz", []item{mk("aaa"), mk("bbb")})
	assert.Equal(t, KindNone, res.Kind)
}

func TestMatch_High_ExactSubstringSingle(t *testing.T) {
	res := Match("foo", []item{mk("foobar")})
	require.Equal(t, KindHigh, res.Kind)
	assert.Equal(t, "foobar", res.Winner.FuzzKey())
}

func TestMatch_PrefixAmbiguity_Scenario(t *testing.T) {
	// spec scenario 4: keys aaa, aaa/bbb, aaa/ccc, query "aa" -> Multi{ans=aaa, others=[aaa/bbb,aaa/ccc], still_others=[]}
	res := Match("aa", []item{mk("aaa"), mk("aaa/bbb"), mk("aaa/ccc")})
	require.Equal(t, KindMulti, res.Kind)
	assert.Equal(t, "aaa", res.Winner.FuzzKey())
	require.Len(t, res.Others, 2)
	assert.Empty(t, res.StillOthers)
}

func TestMatch_Low_SingleWeakCandidate(t *testing.T) {
	// "zb" is a gapped subsequence of "zebra": 10 + (10-1) + early bonus 20 = 39.
	res := Match("zb", []item{mk("zebra"), mk("foo")})
	require.Equal(t, KindLow, res.Kind)
	assert.Equal(t, "zebra", res.Winner.FuzzKey())
}

func TestIsPrefix(t *testing.T) {
	assert.True(t, IsPrefix("aaa", "aaa", "/"))
	assert.True(t, IsPrefix("aaa", "aaa/bbb", "/"))
	assert.False(t, IsPrefix("aaa", "aaabbb", "/"))
}

func TestMatch_TieBreak_LastTimeThenName(t *testing.T) {
	older := time.Unix(100, 0)
	newer := time.Unix(200, 0)
	res := Match("ab", []item{
		{key: "ab", time: older},
		{key: "abc", time: newer},
	})
	// both exact-substring at idx 0 -> tie on score; newer last_time wins.
	require.NotEqual(t, KindNone, res.Kind)
	assert.Equal(t, "abc", res.Winner.FuzzKey())
}

func TestMatch_Empty(t *testing.T) {
	res := Match("a", nil)
	assert.Equal(t, KindNone, res.Kind)
}
