package outcome

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagSet_UnionIgnoresOrderAndDuplicates(t *testing.T) {
	a := NewTagSet(TagPass, TagPass)
	b := NewTagSet(TagFail, TagPass)

	u := a.Union(b)
	assert.Len(t, u, 2)
	assert.True(t, u.Has(TagPass))
	assert.True(t, u.Has(TagFail))
	assert.Equal(t, u, b.Union(a))

	// operands are left untouched
	assert.Len(t, a, 1)
	assert.Len(t, b, 2)
}

func TestTagSet_ZeroValue(t *testing.T) {
	var s TagSet
	assert.False(t, s.Has(TagPass))
	assert.False(t, s.HasAny(TagFail, TagError))
	assert.Empty(t, s.Union(nil))
	assert.Equal(t, "{}", s.String())
}

func TestTagSet_SortedFollowsVocabulary(t *testing.T) {
	s := NewTagSet(TagSkip, TagInterrupted, TagPass)
	assert.Equal(t, []Tag{TagPass, TagInterrupted, TagSkip}, s.Sorted())
	assert.Equal(t, "{PASS, INTERRUPTED, SKIP}", s.String())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["PASS","INTERRUPTED","SKIP"]`, string(data))
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag(" fail ")
	require.NoError(t, err)
	assert.Equal(t, TagFail, tag)

	_, err = ParseTag("WARN")
	assert.Error(t, err)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusRunning.Terminal())
	for _, s := range []Status{StatusPass, StatusFail, StatusError, StatusInterrupted} {
		assert.True(t, s.Terminal(), s)
	}
}
