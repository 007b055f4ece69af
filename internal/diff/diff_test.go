package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_Identical(t *testing.T) {
	r := Diff("a\nb\nc", "a\nb\nc")
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Equal(t, []string{"a", "b", "c"}, r.Unchanged)
	assert.Equal(t, 0, r.CharsAdded)
	assert.Equal(t, 0, r.CharsRemoved)
	assert.Equal(t, "No changes", r.Summary)
}

func TestDiff_AddedLine(t *testing.T) {
	r := Diff("a\nb", "a\nb\nc")
	assert.Equal(t, []string{"c"}, r.Added)
	assert.Empty(t, r.Removed)
	assert.Equal(t, 1, r.CharsAdded)
	assert.Equal(t, 0, r.CharsRemoved)
	assert.Equal(t, "Added 1 lines", r.Summary)
}

func TestDiff_RemovedLine(t *testing.T) {
	r := Diff("a\nb\nc", "a\nc")
	assert.Empty(t, r.Added)
	assert.Equal(t, []string{"b"}, r.Removed)
	assert.Equal(t, 0, r.CharsAdded)
	assert.Equal(t, 1, r.CharsRemoved)
	assert.Equal(t, "Removed 1 lines", r.Summary)
}

func TestDiff_Changed(t *testing.T) {
	r := Diff("one\ntwo", "one\nthree")
	assert.Equal(t, []string{"three"}, r.Added)
	assert.Equal(t, []string{"two"}, r.Removed)
	assert.Equal(t, "Changed 2 lines", r.Summary)
}

func TestDiff_CharDeltaIsAsymmetric(t *testing.T) {
	// "abc" -> "xy": content shrank by one char, so only CharsRemoved is set
	// even though every character differs.
	r := Diff("abc", "xy")
	assert.Equal(t, 0, r.CharsAdded)
	assert.Equal(t, 1, r.CharsRemoved)
}

func TestDiff_DuplicateLinesInvisible(t *testing.T) {
	// Membership is set-based: a line present twice in old and once in new is
	// still reported as fully unchanged.
	r := Diff("a\na\nb", "a\nb")
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Equal(t, "No changes", r.Summary)
}

func TestDiff_ReorderInvisible(t *testing.T) {
	r := Diff("a\nb", "b\na")
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
	assert.Equal(t, "No changes", r.Summary)
}

func TestDiff_Deterministic(t *testing.T) {
	r1 := Diff("a\nb\nc", "c\nd")
	r2 := Diff("a\nb\nc", "c\nd")
	require.Equal(t, r1, r2)
}
