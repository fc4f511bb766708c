package scriptname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTag_RejectsAll(t *testing.T) {
	_, err := NewTag("all")
	assert.Error(t, err)
}

func TestNewTag_RejectsSlash(t *testing.T) {
	_, err := NewTag("a/b")
	assert.Error(t, err)
}

func TestNewTag_Valid(t *testing.T) {
	tag, err := NewTag("work")
	require.NoError(t, err)
	assert.Equal(t, Tag("work"), tag)
	assert.False(t, tag.MatchAll())
}

func TestTagSet_ContainsAllSigil(t *testing.T) {
	set := NewTagSet(Tag("work"))
	assert.True(t, set.Contains(Tag("all")))
	assert.True(t, set.Contains(Tag("work")))
	assert.False(t, set.Contains(Tag("home")))
}
