package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAddReportsNewMembers(t *testing.T) {
	s := New("a")
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Has("b"))
	assert.Equal(t, 2, s.Len())
}

func TestSortedUnion(t *testing.T) {
	s := New("3.7", "2.7").Union(New("3.7", "3.10"))
	assert.Equal(t, []string{"2.7", "3.10", "3.7"}, Sorted(s))
}
